package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/pkg/aggregate"
	"github.com/hostdiag/probekit/pkg/archive"
	"github.com/hostdiag/probekit/pkg/export"
	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/run"
)

const CTJSON string = "application/json"

type SDK interface {
	// StartRun submits a batch of probes for asynchronous execution.
	//
	// example:
	//  r, _ := sdk.StartRun([]string{"cpu_load", "disk_io"})
	//  fmt.Println(r.ID)
	StartRun(probeIDs []string) (run.Run, error)

	// GetRun gets a run by id.
	//
	// example:
	//  r, _ := sdk.GetRun("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(r.Status)
	GetRun(id string) (run.Run, error)

	// ListRuns lists runs.
	//
	// example:
	//  page, _ := sdk.ListRuns(0, 10)
	//  fmt.Println(page.Total)
	ListRuns(offset, limit uint64) (run.Page, error)

	// ListFailures lists the terminal failures recorded for a run.
	//
	// example:
	//  failures, _ := sdk.ListFailures("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	ListFailures(runID string) ([]metric.Failure, error)

	// ListSamples pages through one probe's samples within a window.
	//
	// example:
	//  page, _ := sdk.ListSamples("cpu_load", start, end, 0, 100)
	ListSamples(probeID string, start, end time.Time, offset, limit uint64) (metric.SamplePage, error)

	// GetReport computes trend statistics for one probe window.
	//
	// example:
	//  report, _ := sdk.GetReport("cpu_load", start, end)
	//  fmt.Println(report.Anomaly)
	GetReport(probeID string, start, end time.Time) (aggregate.Report, error)

	// ExportReport returns the display form of a probe report.
	//
	// example:
	//  report, _ := sdk.ExportReport("cpu_load", start, end)
	//  fmt.Println(report.Headline)
	ExportReport(probeID string, start, end time.Time) (export.Report, error)

	// Rotate archives samples older than retention into cold storage.
	//
	// example:
	//  report, _ := sdk.Rotate(7 * 24 * time.Hour)
	//  fmt.Println(report.Archived)
	Rotate(retention time.Duration) (archive.Report, error)

	// ListProbes lists the registered probe descriptors.
	//
	// example:
	//  descs, _ := sdk.ListProbes()
	ListProbes() ([]probe.Descriptor, error)
}

type kitSDK struct {
	engineURL string
	client    *http.Client
}

type Config struct {
	EngineURL       string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &kitSDK{
		engineURL: cfg.EngineURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *kitSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d: %s", resp.StatusCode, body)
	}

	return body, nil
}

func (sdk *kitSDK) StartRun(probeIDs []string) (run.Run, error) {
	data, err := json.Marshal(map[string]any{"probe_ids": probeIDs})
	if err != nil {
		return run.Run{}, err
	}

	body, err := sdk.processRequest(http.MethodPost, sdk.engineURL+"/runs", data, http.StatusAccepted)
	if err != nil {
		return run.Run{}, err
	}

	var r run.Run
	if err := json.Unmarshal(body, &r); err != nil {
		return run.Run{}, err
	}

	return r, nil
}

func (sdk *kitSDK) GetRun(id string) (run.Run, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.engineURL+"/runs/"+id, nil, http.StatusOK)
	if err != nil {
		return run.Run{}, err
	}

	var r run.Run
	if err := json.Unmarshal(body, &r); err != nil {
		return run.Run{}, err
	}

	return r, nil
}

func (sdk *kitSDK) ListRuns(offset, limit uint64) (run.Page, error) {
	reqURL := fmt.Sprintf("%s/runs?offset=%d&limit=%d", sdk.engineURL, offset, limit)
	body, err := sdk.processRequest(http.MethodGet, reqURL, nil, http.StatusOK)
	if err != nil {
		return run.Page{}, err
	}

	var page run.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return run.Page{}, err
	}

	return page, nil
}

func (sdk *kitSDK) ListFailures(runID string) ([]metric.Failure, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.engineURL+"/runs/"+runID+"/failures", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Failures []metric.Failure `json:"failures"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return resp.Failures, nil
}

func (sdk *kitSDK) ListSamples(probeID string, start, end time.Time, offset, limit uint64) (metric.SamplePage, error) {
	reqURL := fmt.Sprintf("%s/samples/%s?%s&offset=%d&limit=%d", sdk.engineURL, probeID, windowQuery(start, end), offset, limit)
	body, err := sdk.processRequest(http.MethodGet, reqURL, nil, http.StatusOK)
	if err != nil {
		return metric.SamplePage{}, err
	}

	var page metric.SamplePage
	if err := json.Unmarshal(body, &page); err != nil {
		return metric.SamplePage{}, err
	}

	return page, nil
}

func (sdk *kitSDK) GetReport(probeID string, start, end time.Time) (aggregate.Report, error) {
	reqURL := fmt.Sprintf("%s/reports/%s?%s", sdk.engineURL, probeID, windowQuery(start, end))
	body, err := sdk.processRequest(http.MethodGet, reqURL, nil, http.StatusOK)
	if err != nil {
		return aggregate.Report{}, err
	}

	var report aggregate.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return aggregate.Report{}, err
	}

	return report, nil
}

func (sdk *kitSDK) ExportReport(probeID string, start, end time.Time) (export.Report, error) {
	reqURL := fmt.Sprintf("%s/reports/%s/export?%s", sdk.engineURL, probeID, windowQuery(start, end))
	body, err := sdk.processRequest(http.MethodGet, reqURL, nil, http.StatusOK)
	if err != nil {
		return export.Report{}, err
	}

	var report export.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return export.Report{}, err
	}

	return report, nil
}

func (sdk *kitSDK) Rotate(retention time.Duration) (archive.Report, error) {
	data, err := json.Marshal(map[string]string{"retention": retention.String()})
	if err != nil {
		return archive.Report{}, err
	}

	body, err := sdk.processRequest(http.MethodPost, sdk.engineURL+"/rotate", data, http.StatusOK)
	if err != nil {
		return archive.Report{}, err
	}

	var report archive.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return archive.Report{}, err
	}

	return report, nil
}

func (sdk *kitSDK) ListProbes() ([]probe.Descriptor, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.engineURL+"/probes", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Probes []probe.Descriptor `json:"probes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return resp.Probes, nil
}

func windowQuery(start, end time.Time) string {
	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))

	return q.Encode()
}
