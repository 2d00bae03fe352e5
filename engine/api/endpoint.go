package api

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/hostdiag/probekit/engine"
	"github.com/hostdiag/probekit/pkg/api"
)

func startRunEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(runReq)
		if !ok {
			return runResponse{}, errors.Join(api.ErrValidation, api.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runResponse{}, errors.Join(api.ErrValidation, err)
		}

		r, err := svc.StartRun(ctx, req.ProbeIDs)
		if err != nil {
			return runResponse{}, err
		}

		return runResponse{
			Run:      r,
			accepted: true,
		}, nil
	}
}

func listRunsEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listRunsResponse{}, errors.Join(api.ErrValidation, api.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRunsResponse{}, errors.Join(api.ErrValidation, err)
		}

		page, err := svc.ListRuns(ctx, req.offset, req.limit)
		if err != nil {
			return listRunsResponse{}, err
		}

		return listRunsResponse{
			Page: page,
		}, nil
	}
}

func getRunEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runResponse{}, errors.Join(api.ErrValidation, api.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runResponse{}, errors.Join(api.ErrValidation, err)
		}

		r, err := svc.GetRun(ctx, req.id)
		if err != nil {
			return runResponse{}, err
		}

		return runResponse{
			Run: r,
		}, nil
	}
}

func listFailuresEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return failuresResponse{}, errors.Join(api.ErrValidation, api.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return failuresResponse{}, errors.Join(api.ErrValidation, err)
		}

		failures, err := svc.ListFailures(ctx, req.id)
		if err != nil {
			return failuresResponse{}, err
		}

		return failuresResponse{
			RunID:    req.id,
			Failures: failures,
		}, nil
	}
}

func listSamplesEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(samplesReq)
		if !ok {
			return samplesResponse{}, errors.Join(api.ErrValidation, api.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return samplesResponse{}, errors.Join(api.ErrValidation, err)
		}

		page, err := svc.ListSamples(ctx, req.probeID, req.start, req.end, req.offset, req.limit)
		if err != nil {
			return samplesResponse{}, err
		}

		return samplesResponse{
			SamplePage: page,
		}, nil
	}
}

func getReportEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(reportReq)
		if !ok {
			return reportResponse{}, errors.Join(api.ErrValidation, api.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return reportResponse{}, errors.Join(api.ErrValidation, err)
		}

		report, err := svc.GetReport(ctx, req.probeID, req.start, req.end)
		if err != nil {
			return reportResponse{}, err
		}

		return reportResponse{
			Report: report,
		}, nil
	}
}

func exportReportEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(reportReq)
		if !ok {
			return exportResponse{}, errors.Join(api.ErrValidation, api.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return exportResponse{}, errors.Join(api.ErrValidation, err)
		}

		report, err := svc.ExportReport(ctx, req.probeID, req.start, req.end)
		if err != nil {
			return exportResponse{}, err
		}

		return exportResponse{
			Report: report,
		}, nil
	}
}

func rotateEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(rotateReq)
		if !ok {
			return rotateResponse{}, errors.Join(api.ErrValidation, api.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return rotateResponse{}, errors.Join(api.ErrValidation, err)
		}

		report, err := svc.Rotate(ctx, req.retention)
		if err != nil {
			return rotateResponse{}, err
		}

		return rotateResponse{
			Report: report,
		}, nil
	}
}

func listProbesEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		descs, err := svc.ListProbes(ctx)
		if err != nil {
			return probesResponse{}, err
		}

		return probesResponse{
			Probes: descs,
		}, nil
	}
}
