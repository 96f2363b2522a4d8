package health

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jpalmerr/labboard/internal/model"
	"github.com/jpalmerr/labboard/internal/store"
)

// Prober runs a check list against a target on the backend.
type Prober interface {
	Health(ctx context.Context, target string, checks []model.Check) ([]byte, error)
}

// Target is one server to evaluate and the badge its verdict resolves.
type Target struct {
	Handle store.Handle
	Server model.Server
}

// Sink receives the verdict for one target. It is called from the target's
// own goroutine.
type Sink func(Target, model.Verdict)

// Orchestrator issues health evaluations.
//
// Orchestrator holds no per-round state; it is safe for concurrent use and
// may be shared across renders.
type Orchestrator struct {
	prober    Prober
	extractor VerdictExtractor
	logger    *slog.Logger

	wg       sync.WaitGroup
	requests atomic.Int64
}

// NewOrchestrator creates an Orchestrator. A nil extractor selects
// [DefaultExtractor]; a nil logger selects slog.Default().
func NewOrchestrator(prober Prober, extractor VerdictExtractor, logger *slog.Logger) *Orchestrator {
	if extractor == nil {
		extractor = DefaultExtractor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{prober: prober, extractor: extractor, logger: logger}
}

// Evaluate returns the verdict for srv.
//
// A server without checks is unknown and causes no request. Every failure
// collapses to unknown.
func (o *Orchestrator) Evaluate(ctx context.Context, srv model.Server) model.Verdict {
	if len(srv.Checks) == 0 {
		return model.VerdictUnknown
	}

	o.requests.Add(1)
	body, err := o.prober.Health(ctx, srv.IP, srv.Checks)
	if err != nil {
		o.logger.Debug("health probe failed",
			"server", srv.Name,
			"target", srv.IP,
			"error", err.Error(),
		)
		return model.VerdictUnknown
	}

	verdict, err := o.safeExtract(body)
	if err != nil {
		o.logger.Warn("health verdict unreadable", "server", srv.Name, "error", err.Error())
		return model.VerdictUnknown
	}
	return verdict
}

// Dispatch starts one evaluation per target and returns immediately.
// Verdicts are delivered to sink in completion order.
func (o *Orchestrator) Dispatch(ctx context.Context, targets []Target, sink Sink) {
	for _, t := range targets {
		o.wg.Add(1)
		go func(t Target) {
			defer o.wg.Done()
			verdict := o.Evaluate(ctx, t.Server)
			o.deliverSafe(sink, t, verdict)
		}(t)
	}
}

// Wait blocks until every dispatched evaluation has been delivered.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Requests returns the number of health requests issued so far.
func (o *Orchestrator) Requests() int64 {
	return o.requests.Load()
}

// safeExtract calls the extractor with panic recovery.
func (o *Orchestrator) safeExtract(body []byte) (verdict model.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			o.logger.Error("verdict extractor panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			verdict = model.VerdictUnknown
			err = fmt.Errorf("extractor panic (correlation_id: %s)", correlationID)
		}
	}()
	return o.extractor(body), nil
}

// deliverSafe calls sink with panic recovery. Panics are logged but do not
// propagate.
func (o *Orchestrator) deliverSafe(sink Sink, t Target, verdict model.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("verdict sink panicked",
				"correlation_id", uuid.NewString(),
				"panic", r,
				"badge", t.Handle.ID,
			)
		}
	}()
	sink(t, verdict)
}
