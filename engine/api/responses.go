package api

import (
	"net/http"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/aggregate"
	"github.com/hostdiag/probekit/pkg/api"
	"github.com/hostdiag/probekit/pkg/archive"
	"github.com/hostdiag/probekit/pkg/export"
	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/run"
)

var (
	_ api.Response = (*runResponse)(nil)
	_ api.Response = (*listRunsResponse)(nil)
	_ api.Response = (*failuresResponse)(nil)
	_ api.Response = (*samplesResponse)(nil)
	_ api.Response = (*reportResponse)(nil)
	_ api.Response = (*exportResponse)(nil)
	_ api.Response = (*rotateResponse)(nil)
	_ api.Response = (*probesResponse)(nil)
)

type runResponse struct {
	run.Run
	accepted bool
}

// Accepted batches resolve asynchronously, so submission answers 202
// with the location to poll.
func (r runResponse) Code() int {
	if r.accepted {
		return http.StatusAccepted
	}

	return http.StatusOK
}

func (r runResponse) Headers() map[string]string {
	if r.accepted {
		return map[string]string{
			"Location": "/runs/" + r.ID,
		}
	}

	return map[string]string{}
}

func (r runResponse) Empty() bool {
	return false
}

type listRunsResponse struct {
	run.Page
}

func (l listRunsResponse) Code() int {
	return http.StatusOK
}

func (l listRunsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listRunsResponse) Empty() bool {
	return false
}

type failuresResponse struct {
	RunID    string           `json:"run_id"`
	Failures []metric.Failure `json:"failures"`
}

func (f failuresResponse) Code() int {
	return http.StatusOK
}

func (f failuresResponse) Headers() map[string]string {
	return map[string]string{}
}

func (f failuresResponse) Empty() bool {
	return false
}

type samplesResponse struct {
	metric.SamplePage
}

func (s samplesResponse) Code() int {
	return http.StatusOK
}

func (s samplesResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s samplesResponse) Empty() bool {
	return false
}

type reportResponse struct {
	aggregate.Report
}

func (r reportResponse) Code() int {
	return http.StatusOK
}

func (r reportResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r reportResponse) Empty() bool {
	return false
}

type exportResponse struct {
	export.Report
}

func (e exportResponse) Code() int {
	return http.StatusOK
}

func (e exportResponse) Headers() map[string]string {
	return map[string]string{}
}

func (e exportResponse) Empty() bool {
	return false
}

type rotateResponse struct {
	archive.Report
}

func (r rotateResponse) Code() int {
	return http.StatusOK
}

func (r rotateResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r rotateResponse) Empty() bool {
	return false
}

type probesResponse struct {
	Probes []probe.Descriptor `json:"probes"`
}

func (p probesResponse) Code() int {
	return http.StatusOK
}

func (p probesResponse) Headers() map[string]string {
	return map[string]string{}
}

func (p probesResponse) Empty() bool {
	return false
}
