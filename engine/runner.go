package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/run"
)

type pendingItem struct {
	p       probe.Probe
	attempt int
}

type completion struct {
	p       probe.Probe
	desc    probe.Descriptor
	attempt int
	sample  metric.Sample
	err     error
}

type outcome struct {
	status run.Status
	detail string
}

// orchestrate runs one batch to a terminal state. It is the single
// writer for the batch: probes execute on their own goroutines but
// every admission decision and every persisted sample or failure goes
// through this loop, so no locking is needed around the running set.
func (svc *service) orchestrate(bctx context.Context, runID string, probes []probe.Probe) outcome {
	pending := make([]pendingItem, 0, len(probes))
	for _, p := range probes {
		pending = append(pending, pendingItem{p: p, attempt: 1})
	}

	var (
		running = make(map[string]probe.Descriptor)
		// Buffered to the batch size so abandoned probe goroutines can
		// always deliver and exit.
		results   = make(chan completion, len(probes))
		retries   = make(chan pendingItem, len(probes))
		remaining = len(probes)
		failed    int
		storeErr  error
	)

	recordFailure := func(desc probe.Descriptor, cause metric.FailureCause, detail string) {
		failed++
		f := metric.Failure{
			ProbeID:   desc.ID,
			RunID:     runID,
			Timestamp: time.Now(),
			Cause:     cause,
			Detail:    detail,
		}
		if err := svc.failures.Append(context.Background(), f); err != nil {
			storeErr = err
			svc.logger.Error("failed to record probe failure",
				slog.String("run_id", runID),
				slog.String("probe_id", desc.ID),
				slog.Any("error", err),
			)
		}
	}

	launch := func(it pendingItem) {
		desc := it.p.Descriptor()
		running[desc.ID] = desc
		go func() {
			pctx, cancel := context.WithTimeout(bctx, desc.Timeout)
			defer cancel()
			s, err := it.p.Run(pctx)
			results <- completion{p: it.p, desc: desc, attempt: it.attempt, sample: s, err: err}
		}()
	}

	for remaining > 0 {
		// Durability is gone once the store rejects a write: stop
		// scheduling, let in-flight probes wind down, and fail the run.
		if storeErr != nil {
			svc.drain(runID, running, results)

			return outcome{status: run.Failed, detail: storeErr.Error()}
		}

		// Admit from the head of the ready queue while capacity
		// allows. The queue is strictly FIFO: a blocked head is never
		// overtaken.
		for len(pending) > 0 {
			it := pending[0]
			desc := it.p.Descriptor()
			if !svc.policy.Admissible(desc) {
				pending = pending[1:]
				remaining--
				recordFailure(desc, metric.CauseResourceDenied, fmt.Sprintf("resource class %q can never be admitted", desc.Class))

				continue
			}
			if !svc.policy.Admit(desc, descriptors(running)) {
				break
			}
			pending = pending[1:]
			launch(it)
		}

		select {
		case c := <-results:
			delete(running, c.desc.ID)
			if bctx.Err() != nil {
				// The deadline fired while this result was in flight;
				// the Done branch below finalizes the batch.
				svc.discard(runID, c)

				continue
			}

			switch {
			case c.err == nil:
				remaining--
				s := c.sample
				s.ProbeID = c.desc.ID
				s.RunID = runID
				if s.Timestamp.IsZero() {
					s.Timestamp = time.Now()
				}
				if err := svc.samples.Append(context.Background(), s); err != nil {
					storeErr = err
					svc.logger.Error("failed to persist sample",
						slog.String("run_id", runID),
						slog.String("probe_id", c.desc.ID),
						slog.Any("error", err),
					)
				}

			case errors.Is(c.err, context.DeadlineExceeded):
				// The probe's own timeout, not the batch deadline.
				// Timeouts are terminal regardless of retry policy.
				remaining--
				recordFailure(c.desc, metric.CauseTimeout, fmt.Sprintf("exceeded %s timeout", c.desc.Timeout))

			case probe.Transient(c.err) && c.attempt < c.desc.Retry.MaxAttempts:
				backoff := c.desc.Retry.Backoff << (c.attempt - 1)
				svc.logger.Warn("retrying probe after transient failure",
					slog.String("run_id", runID),
					slog.String("probe_id", c.desc.ID),
					slog.Int("attempt", c.attempt),
					slog.Duration("backoff", backoff),
					slog.Any("error", c.err),
				)
				it := pendingItem{p: c.p, attempt: c.attempt + 1}
				time.AfterFunc(backoff, func() {
					retries <- it
				})

			default:
				remaining--
				recordFailure(c.desc, metric.CauseProbeError, c.err.Error())
			}

		case it := <-retries:
			pending = append(pending, it)

		case <-bctx.Done():
			svc.drain(runID, running, results)

			return outcome{status: run.Partial, detail: "batch deadline exceeded"}
		}
	}

	// Failed is reserved for initialization and store faults; a batch
	// whose probes all resolved is Completed or Partial, even when every
	// probe failed.
	switch {
	case storeErr != nil:
		return outcome{status: run.Failed, detail: storeErr.Error()}
	case failed == 0:
		return outcome{status: run.Completed}
	default:
		return outcome{status: run.Partial, detail: fmt.Sprintf("%d of %d probes failed", failed, len(probes))}
	}
}

// drain waits up to the grace period for cancelled probes to
// acknowledge. Their results arrived after the batch resolved and are
// discarded, never persisted.
func (svc *service) drain(runID string, running map[string]probe.Descriptor, results chan completion) {
	grace := time.NewTimer(svc.cfg.GracePeriod)
	defer grace.Stop()

	for len(running) > 0 {
		select {
		case c := <-results:
			delete(running, c.desc.ID)
			svc.discard(runID, c)
		case <-grace.C:
			for id := range running {
				svc.logger.Warn("probe unresponsive past grace period",
					slog.String("run_id", runID),
					slog.String("probe_id", id),
				)
			}

			return
		}
	}
}

func (svc *service) discard(runID string, c completion) {
	svc.logger.Warn("discarding late probe result",
		slog.String("run_id", runID),
		slog.String("probe_id", c.desc.ID),
	)
}

func descriptors(running map[string]probe.Descriptor) []probe.Descriptor {
	descs := make([]probe.Descriptor, 0, len(running))
	for _, d := range running {
		descs = append(descs, d)
	}

	return descs
}
