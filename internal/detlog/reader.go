package detlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Read streams records from r, invoking fn for each in append order.
func Read(r io.Reader, fn func(Record) error) error {
	dec := json.NewDecoder(r)
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("detlog: decode: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// ReadFile opens path and streams its records through fn.
func ReadFile(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("detlog: %w", err)
	}
	defer f.Close()
	return Read(f, fn)
}
