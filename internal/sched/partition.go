package sched

// Entry is a partition's unit of work, run once per slot activation.
type Entry func() error

// Partition is a statically allocated, time-protected unit of work. Partitions
// hold no reference to each other; the only shared surface is what the
// orchestrator passes through its own context.
type Partition struct {
	ID         uint32
	Name       string
	DurationUS uint64
	LastExecUS uint64
	entry      Entry
}

// Slot describes one configured partition before table construction.
type Slot struct {
	Name       string
	DurationUS uint64
	Entry      Entry
}
