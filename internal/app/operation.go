package app

import "time"

// Operation tracks the CLI command an app instance was created for.
// Its ID tags every log line the command produces.
type Operation struct {
	ID        string
	Name      string
	StartedAt time.Time
	Status    string // "success" or "error"
}

// NewOperation creates an operation started at now. IDs sort by start time.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		ID:        now.UTC().Format("20060102T150405Z"),
		Name:      name,
		StartedAt: now,
		Status:    "success",
	}
}

// Record marks the operation failed if err is non-nil and returns err.
func (op *Operation) Record(err error) error {
	if err != nil {
		op.Status = "error"
	}
	return err
}

// Failed returns true if any recorded step returned an error.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}
