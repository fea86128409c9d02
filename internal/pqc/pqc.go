// Post-quantum signing stub. Real deployments substitute a Dilithium/Kyber
// implementation behind the same interface; the kernel only requires that
// every actuation record carries a signature.
package pqc

// Signer signs actuation payloads before they reach the deterministic log.
type Signer interface {
	Sign(msg []byte) []byte
}

const mockSignature = "MOCKSIG_KYBER_DILITHIUM"

// MockSigner returns a fixed mock signature regardless of input.
type MockSigner struct{}

// NewMockSigner returns a MockSigner with its (empty) key material loaded.
func NewMockSigner() *MockSigner {
	return &MockSigner{}
}

// Sign implements Signer.
func (*MockSigner) Sign(msg []byte) []byte {
	return []byte(mockSignature)
}
