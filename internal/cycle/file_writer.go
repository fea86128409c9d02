package cycle

import (
	"encoding/json"
	"os"
)

// FileWriter writes cycle and event rows to JSONL files.
type FileWriter struct {
	cycleFile *os.File
	eventFile *os.File
	cycleEnc  *json.Encoder
	eventEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. eventPath may be empty to skip the
// event log.
func NewFileWriter(cyclePath, eventPath string) (*FileWriter, error) {
	cf, err := os.Create(cyclePath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{cycleFile: cf, cycleEnc: json.NewEncoder(cf)}
	if eventPath != "" {
		ef, err := os.Create(eventPath)
		if err != nil {
			cf.Close()
			return nil, err
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	return fw, nil
}

// Write logs a single cycle row.
func (f *FileWriter) Write(row CycleRow) error {
	return f.cycleEnc.Encode(row)
}

// WriteBatch logs multiple cycle rows.
func (f *FileWriter) WriteBatch(rows []CycleRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent logs a single event row, if enabled.
func (f *FileWriter) WriteEvent(row EventRow) error {
	if f.eventEnc == nil {
		return nil
	}
	return f.eventEnc.Encode(row)
}

// WriteEvents logs multiple event rows.
func (f *FileWriter) WriteEvents(rows []EventRow) error {
	for _, r := range rows {
		if err := f.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.cycleFile != nil {
		if e := f.cycleFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.eventFile != nil {
		if e := f.eventFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
