package voter

import "testing"

func TestVote_TwoChannelsAgree(t *testing.T) {
	v := New()
	a := ControlOutput{ElevonL: 1.0, ElevonR: 1.0}
	b := ControlOutput{ElevonL: 1.0002, ElevonR: 0.9999}
	c := ControlOutput{ElevonL: 5.0, ElevonR: 5.0}

	out, err := v.Vote(0x27, a, b, c, 1e-3)
	if err != nil {
		t.Fatalf("Vote() returned error: %v", err)
	}
	if out != a {
		t.Errorf("expected candidate a selected, got %+v", out)
	}
	got, ok := v.Consensus(0x27)
	if !ok || got != a {
		t.Errorf("retained consensus = %+v, ok=%v; want %+v", got, ok, a)
	}
}

func TestVote_AllAgree(t *testing.T) {
	v := New()
	a := ControlOutput{ElevonL: 0.24, ElevonR: 0.24}
	out, err := v.Vote(0x27, a, a, a, 1e-4)
	if err != nil {
		t.Fatalf("Vote() returned error: %v", err)
	}
	if out != a {
		t.Errorf("expected %+v, got %+v", a, out)
	}
}

func TestVote_BCAgreeSelectsB(t *testing.T) {
	v := New()
	a := ControlOutput{ElevonL: 9.0, ElevonR: 9.0}
	b := ControlOutput{ElevonL: 1.0, ElevonR: 1.0}
	c := ControlOutput{ElevonL: 1.00005, ElevonR: 0.99995}

	out, err := v.Vote(0x27, a, b, c, 1e-3)
	if err != nil {
		t.Fatalf("Vote() returned error: %v", err)
	}
	if out != b {
		t.Errorf("expected candidate b selected, got %+v", out)
	}
}

func TestVote_MismatchRetainsPrevious(t *testing.T) {
	v := New()
	good := ControlOutput{ElevonL: 0.5, ElevonR: 0.5}
	if _, err := v.Vote(0x27, good, good, good, 1e-4); err != nil {
		t.Fatalf("seed Vote() returned error: %v", err)
	}

	a := ControlOutput{ElevonL: 1.0, ElevonR: 1.0}
	b := ControlOutput{ElevonL: 2.0, ElevonR: 2.0}
	c := ControlOutput{ElevonL: 3.0, ElevonR: 3.0}
	if _, err := v.Vote(0x27, a, b, c, 1e-4); err != ErrMismatch {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}

	got, ok := v.Consensus(0x27)
	if !ok || got != good {
		t.Errorf("retained consensus changed after mismatch: %+v ok=%v", got, ok)
	}
}

func TestVote_NoConsensusForUnknownSubsystem(t *testing.T) {
	v := New()
	if _, ok := v.Consensus(0x34); ok {
		t.Error("expected no retained consensus for unseen subsystem")
	}
}

func TestVote_SelectionNeverBlends(t *testing.T) {
	v := New()
	a := ControlOutput{ElevonL: 1.0, ElevonR: 2.0}
	b := ControlOutput{ElevonL: 1.0001, ElevonR: 2.0001}
	c := ControlOutput{ElevonL: 0.9999, ElevonR: 1.9999}

	out, err := v.Vote(0x27, a, b, c, 1e-3)
	if err != nil {
		t.Fatalf("Vote() returned error: %v", err)
	}
	if out != a && out != b && out != c {
		t.Errorf("selected value %+v is not one of the candidates", out)
	}
}
