package run

import (
	"time"
)

type Status uint8

const (
	Running Status = iota
	Completed
	Partial
	Failed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Partial:
		return "Partial"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Run is one orchestrated execution of a set of probes. Created by the
// engine at batch start, mutated only by the engine as probes resolve,
// terminal once every probe has resolved or the run was cancelled.
type Run struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	ProbeIDs   []string  `json:"probe_ids"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Error      string    `json:"error,omitempty"`
}

type Page struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Runs   []Run  `json:"runs"`
}
