package metric

import (
	"time"
)

// Sample is one persisted measurement produced by a probe. Samples are
// immutable once written; RunID ties the sample to the batch that
// produced it.
type Sample struct {
	ProbeID   string         `json:"probe_id"`
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Value     float64        `json:"value"`
	Unit      string         `json:"unit,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

type FailureCause string

const (
	CauseTimeout        FailureCause = "timeout"
	CauseProbeError     FailureCause = "probe_error"
	CauseResourceDenied FailureCause = "resource_denied"
)

// Failure is a terminal probe failure, stored alongside samples for
// audit. Transient failures that were retried successfully are never
// persisted as Failures.
type Failure struct {
	ProbeID   string       `json:"probe_id"`
	RunID     string       `json:"run_id"`
	Timestamp time.Time    `json:"timestamp"`
	Cause     FailureCause `json:"cause"`
	Detail    string       `json:"detail,omitempty"`
}

type SamplePage struct {
	Offset  uint64   `json:"offset"`
	Limit   uint64   `json:"limit"`
	Total   uint64   `json:"total"`
	Samples []Sample `json:"samples"`
}
