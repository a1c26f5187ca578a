package app

import (
	"fmt"
	"time"
)

// Operation tracks one CLI command from start to finish. Its ID tags every
// log line the command writes.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
}

// NewOperation creates an operation started at now.
func NewOperation(name, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         now.UTC().Format("20060102T150405Z"),
		Name:       name,
		Parameters: parameters,
		Status:     "success",
		StartedAt:  now,
	}
}

// Fail marks the operation as failed. A nil error leaves it unchanged.
func (op *Operation) Fail(err error) {
	if err != nil {
		op.Status = "error"
	}
}

// Elapsed returns the time since the operation started.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.StartedAt)
}

func (op *Operation) String() string {
	if op.Parameters == "" {
		return op.Name
	}
	return fmt.Sprintf("%s(%s)", op.Name, op.Parameters)
}
