package api

import (
	"time"

	"github.com/hostdiag/probekit/pkg/api"
)

type runReq struct {
	ProbeIDs []string `json:"probe_ids"`
}

// A nil probe set means every registered probe; an explicitly empty one
// is rejected.
func (r *runReq) validate() error {
	if r.ProbeIDs != nil && len(r.ProbeIDs) == 0 {
		return api.ErrEmptyProbeSet
	}

	return nil
}

type entityReq struct {
	id string
}

func (e *entityReq) validate() error {
	if e.id == "" {
		return api.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (e *listEntityReq) validate() error {
	return nil
}

type samplesReq struct {
	probeID       string
	start, end    time.Time
	offset, limit uint64
}

func (s *samplesReq) validate() error {
	if s.probeID == "" {
		return api.ErrMissingID
	}
	if s.end.Before(s.start) {
		return api.ErrInvalidQueryParams
	}

	return nil
}

type reportReq struct {
	probeID    string
	start, end time.Time
}

func (r *reportReq) validate() error {
	if r.probeID == "" {
		return api.ErrMissingID
	}
	if r.end.Before(r.start) {
		return api.ErrInvalidQueryParams
	}

	return nil
}

type rotateReq struct {
	retention time.Duration
}

func (r *rotateReq) validate() error {
	if r.retention <= 0 {
		return api.ErrValidation
	}

	return nil
}
