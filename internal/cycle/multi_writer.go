package cycle

// MultiWriter fan-outs cycle and event rows to multiple writers.
type MultiWriter struct {
	cycleWriters []CycleWriter
	eventWriters []EventWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(cws []CycleWriter, ews []EventWriter) *MultiWriter {
	return &MultiWriter{cycleWriters: cws, eventWriters: ews}
}

// Write sends a cycle row to all writers.
func (mw *MultiWriter) Write(row CycleRow) error {
	for _, w := range mw.cycleWriters {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple cycle rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []CycleRow) error {
	for _, w := range mw.cycleWriters {
		if bw, ok := w.(batchCycleWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteEvent sends an event row to all event writers.
func (mw *MultiWriter) WriteEvent(row EventRow) error {
	for _, w := range mw.eventWriters {
		if err := w.WriteEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents sends multiple events to all event writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(rows []EventRow) error {
	for _, w := range mw.eventWriters {
		if bw, ok := w.(batchEventWriter); ok {
			if err := bw.WriteEvents(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteEvent(r); err != nil {
				return err
			}
		}
	}
	return nil
}
