package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/hostdiag/probekit/pkg/archive"
	"github.com/hostdiag/probekit/pkg/storage"
	"github.com/hostdiag/probekit/probe"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	StartKey  = "start"
	EndKey    = "end"

	DefOffset = 0
	DefLimit  = 100

	ContentType = "application/json"
)

var (
	ErrValidation             = errors.New("validation error")
	ErrInvalidData            = errors.New("invalid request data")
	ErrMissingID              = errors.New("missing entity id")
	ErrEmptyProbeSet          = errors.New("empty probe set")
	ErrInvalidQueryParams     = errors.New("invalid query parameters")
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

// Response lets endpoint responses control their HTTP representation.
type Response interface {
	Code() int
	Headers() map[string]string
	Empty() bool
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	if ar, ok := response.(Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrUnsupportedContentType),
		errors.Is(err, probe.ErrUnknownProbe),
		errors.Is(err, archive.ErrRetentionTooShort):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrRunNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, storage.ErrDuplicateKey):
		w.WriteHeader(http.StatusConflict)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if err := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// LoggingErrorEncoder logs validation errors before delegating to enc.
func LoggingErrorEncoder(logger *slog.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		if errors.Is(err, ErrValidation) {
			logger.Error(err.Error())
		}
		enc(ctx, err, w)
	}
}

// ReadUintQuery reads a non-negative integer query parameter, falling
// back to def when absent.
func ReadUintQuery(r *http.Request, key string, def uint64) (uint64, error) {
	vals := r.URL.Query()[key]
	if len(vals) == 0 {
		return def, nil
	}
	v, err := strconv.ParseUint(vals[0], 10, 64)
	if err != nil {
		return 0, errors.Join(ErrInvalidQueryParams, err)
	}

	return v, nil
}

// ReadTimeQuery reads a timestamp query parameter, accepting RFC 3339
// or integer unix seconds, falling back to def when absent.
func ReadTimeQuery(r *http.Request, key string, def time.Time) (time.Time, error) {
	vals := r.URL.Query()[key]
	if len(vals) == 0 {
		return def, nil
	}
	if secs, err := strconv.ParseInt(vals[0], 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	t, err := time.Parse(time.RFC3339, vals[0])
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidQueryParams, err)
	}

	return t, nil
}
