package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hostdiag/probekit/engine"
	"github.com/hostdiag/probekit/pkg/api"
)

func MakeHandler(svc engine.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(api.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Route("/runs", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			startRunEndpoint(svc),
			decodeRunReq,
			api.EncodeResponse,
			opts...,
		), "start-run").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRunsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-runs").ServeHTTP)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getRunEndpoint(svc),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "get-run").ServeHTTP)
			r.Get("/failures", otelhttp.NewHandler(kithttp.NewServer(
				listFailuresEndpoint(svc),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "list-failures").ServeHTTP)
		})
	})

	mux.Get("/samples/{probeID}", otelhttp.NewHandler(kithttp.NewServer(
		listSamplesEndpoint(svc),
		decodeSamplesReq,
		api.EncodeResponse,
		opts...,
	), "list-samples").ServeHTTP)

	mux.Route("/reports/{probeID}", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			getReportEndpoint(svc),
			decodeReportReq,
			api.EncodeResponse,
			opts...,
		), "get-report").ServeHTTP)
		r.Get("/export", otelhttp.NewHandler(kithttp.NewServer(
			exportReportEndpoint(svc),
			decodeReportReq,
			api.EncodeResponse,
			opts...,
		), "export-report").ServeHTTP)
	})

	mux.Post("/rotate", otelhttp.NewHandler(kithttp.NewServer(
		rotateEndpoint(svc),
		decodeRotateReq,
		api.EncodeResponse,
		opts...,
	), "rotate").ServeHTTP)

	mux.Get("/probes", otelhttp.NewHandler(kithttp.NewServer(
		listProbesEndpoint(svc),
		decodeNothing,
		api.EncodeResponse,
		opts...,
	), "list-probes").ServeHTTP)

	mux.Get("/health", api.Health("engine", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeRunReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(api.ErrValidation, api.ErrUnsupportedContentType)
	}

	var req runReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, api.ErrValidation)
	}

	return req, nil
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	o, err := api.ReadUintQuery(r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(api.ErrValidation, err)
	}

	l, err := api.ReadUintQuery(r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(api.ErrValidation, err)
	}

	return listEntityReq{
		offset: o,
		limit:  l,
	}, nil
}

func decodeSamplesReq(_ context.Context, r *http.Request) (any, error) {
	o, err := api.ReadUintQuery(r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(api.ErrValidation, err)
	}

	l, err := api.ReadUintQuery(r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(api.ErrValidation, err)
	}

	start, end, err := decodeWindow(r)
	if err != nil {
		return nil, err
	}

	return samplesReq{
		probeID: chi.URLParam(r, "probeID"),
		start:   start,
		end:     end,
		offset:  o,
		limit:   l,
	}, nil
}

func decodeReportReq(_ context.Context, r *http.Request) (any, error) {
	start, end, err := decodeWindow(r)
	if err != nil {
		return nil, err
	}

	return reportReq{
		probeID: chi.URLParam(r, "probeID"),
		start:   start,
		end:     end,
	}, nil
}

// decodeWindow reads the optional start and end query parameters. The
// window defaults to the entire series.
func decodeWindow(r *http.Request) (time.Time, time.Time, error) {
	start, err := api.ReadTimeQuery(r, api.StartKey, time.Unix(0, 0))
	if err != nil {
		return time.Time{}, time.Time{}, errors.Join(api.ErrValidation, err)
	}

	end, err := api.ReadTimeQuery(r, api.EndKey, time.Now())
	if err != nil {
		return time.Time{}, time.Time{}, errors.Join(api.ErrValidation, err)
	}

	return start, end, nil
}

func decodeRotateReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(api.ErrValidation, api.ErrUnsupportedContentType)
	}

	var body struct {
		Retention string `json:"retention"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errors.Join(err, api.ErrValidation)
	}
	retention, err := time.ParseDuration(body.Retention)
	if err != nil {
		return nil, errors.Join(api.ErrValidation, err)
	}

	return rotateReq{
		retention: retention,
	}, nil
}

func decodeNothing(_ context.Context, _ *http.Request) (any, error) {
	return nil, nil
}
