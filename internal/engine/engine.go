package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nightline/internal/classifier"
	"github.com/sells-group/nightline/internal/config"
	"github.com/sells-group/nightline/internal/leads"
	"github.com/sells-group/nightline/internal/model"
	"github.com/sells-group/nightline/internal/store"
)

// Engine is the audit run controller. Calls are placed strictly one at a
// time: a single concurrent call keeps the operation inconspicuous and the
// provider bill predictable.
type Engine struct {
	dispatcher      *Dispatcher
	poller          *Poller
	classifier      *classifier.Classifier
	store           store.Store
	delay           time.Duration
	checkpointEvery int

	// mu serializes batches: the dialed-number dedup set must be read only
	// after the previous batch's writes have landed.
	mu sync.Mutex
}

// New assembles an Engine from its collaborators and audit settings.
func New(d *Dispatcher, p *Poller, c *classifier.Classifier, st store.Store, cfg config.AuditConfig) *Engine {
	every := cfg.CheckpointEvery
	if every <= 0 {
		every = 10
	}
	return &Engine{
		dispatcher:      d,
		poller:          p,
		classifier:      c,
		store:           st,
		delay:           cfg.Delay(),
		checkpointEvery: every,
	}
}

// Run audits every target in order and returns the completed run. Each
// dialed target yields exactly one result regardless of dispatch, poll, or
// classification failures; only numbers already dialed in a previous run
// (or earlier in this one) are skipped. Concurrent callers queue; only one
// batch executes at a time. Cancellation checkpoints whatever finished and
// marks the run failed.
func (e *Engine) Run(ctx context.Context, label string, targets []model.CallTarget) (*model.AuditRun, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	targets, skipped, err := e.dedupe(ctx, targets)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		zap.L().Info("skipping already-dialed numbers", zap.Int("skipped", skipped))
	}

	run, err := e.store.CreateRun(ctx, label, len(targets))
	if err != nil {
		return nil, eris.Wrap(err, "engine: create run")
	}
	if err := e.store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		return nil, eris.Wrap(err, "engine: mark run running")
	}
	run.Status = model.RunStatusRunning

	zap.L().Info("audit run started",
		zap.String("run_id", run.ID),
		zap.String("label", label),
		zap.Int("targets", len(targets)),
	)

	var stats model.RunStats
	var pending []model.AuditResult

	for i, target := range targets {
		if ctx.Err() != nil {
			return e.abort(run, stats, pending, ctx.Err())
		}

		result := e.AuditOne(ctx, target)
		run.Results = append(run.Results, result)
		pending = append(pending, result)
		stats.Tally(result)

		zap.L().Info("target audited",
			zap.String("run_id", run.ID),
			zap.String("phone", target.Phone),
			zap.String("answered_by", string(result.Classification.AnsweredBy)),
			zap.Bool("qualified", result.Classification.IsQualified),
			zap.Int("progress", i+1),
			zap.Int("of", len(targets)),
		)

		if len(pending) >= e.checkpointEvery {
			pending = e.checkpoint(ctx, run, pending)
		}

		if i < len(targets)-1 && e.delay > 0 {
			select {
			case <-ctx.Done():
				return e.abort(run, stats, pending, ctx.Err())
			case <-time.After(e.delay):
			}
		}
	}

	if len(pending) > 0 {
		pending = e.checkpoint(ctx, run, pending)
		if len(pending) > 0 {
			return e.abort(run, stats, pending, eris.New("engine: final checkpoint failed"))
		}
	}

	if err := e.store.CompleteRun(ctx, run.ID, model.RunStatusComplete, stats); err != nil {
		return nil, eris.Wrap(err, "engine: complete run")
	}
	run.Status = model.RunStatusComplete
	run.Stats = stats

	zap.L().Info("audit run complete",
		zap.String("run_id", run.ID),
		zap.Int("total", stats.Total),
		zap.Int("qualified", stats.Qualified),
	)
	return run, nil
}

// AuditOne executes the full lifecycle for a single target: dispatch, await
// the terminal state, classify. It never fails; a target whose call could
// not be placed gets an error record flagged for manual review.
func (e *Engine) AuditOne(ctx context.Context, target model.CallTarget) model.AuditResult {
	calledAt := time.Now().UTC()

	handle, err := e.dispatcher.Dispatch(ctx, target)
	if err != nil {
		zap.L().Error("dispatch failed",
			zap.String("phone", target.Phone),
			zap.Error(err),
		)
		return model.AuditResult{
			Target: target,
			Record: model.CallRecord{
				Status: model.CallStatusError,
				Error:  err.Error(),
			},
			Classification: model.ClassificationResult{
				AnsweredBy: model.AnsweredUnknown,
				Confidence: model.ConfidenceLow,
				Notes:      "call could not be placed - manual review needed",
			},
			CalledAt: calledAt,
		}
	}

	record := e.poller.AwaitCompletion(ctx, handle)
	verdict := e.classifier.Classify(ctx, record)

	return model.AuditResult{
		Target:         target,
		Record:         record,
		Classification: verdict,
		CalledAt:       calledAt,
	}
}

// checkpoint persists the pending batch and advances the run cursor. On
// failure the batch is kept and retried at the next interval; the cursor
// math tolerates a larger batch later.
func (e *Engine) checkpoint(ctx context.Context, run *model.AuditRun, pending []model.AuditResult) []model.AuditResult {
	cursor := len(run.Results)
	if err := e.store.AppendResults(ctx, run.ID, pending, cursor); err != nil {
		zap.L().Error("checkpoint write failed",
			zap.String("run_id", run.ID),
			zap.Int("pending", len(pending)),
			zap.Error(err),
		)
		return pending
	}
	run.Cursor = cursor
	zap.L().Debug("checkpoint written",
		zap.String("run_id", run.ID),
		zap.Int("cursor", cursor),
	)
	return nil
}

// abort flushes what it can and marks the run failed.
func (e *Engine) abort(run *model.AuditRun, stats model.RunStats, pending []model.AuditResult, cause error) (*model.AuditRun, error) {
	// The run context is gone; use a short-lived one so the final writes
	// still land.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(pending) > 0 {
		e.checkpoint(flushCtx, run, pending)
	}
	if err := e.store.CompleteRun(flushCtx, run.ID, model.RunStatusFailed, stats); err != nil {
		zap.L().Error("failed to mark run failed",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
	run.Status = model.RunStatusFailed
	run.Stats = stats
	return run, eris.Wrap(cause, "engine: run aborted")
}

// dedupe removes targets whose normalized number was already dialed in any
// stored run, and collapses duplicates within the batch itself.
func (e *Engine) dedupe(ctx context.Context, targets []model.CallTarget) ([]model.CallTarget, int, error) {
	dialed, err := e.store.DialedPhones(ctx)
	if err != nil {
		return nil, 0, eris.Wrap(err, "engine: load dialed numbers")
	}

	var out []model.CallTarget
	skipped := 0
	for _, t := range targets {
		key := leads.NormalizePhone(t.Phone)
		if key == "" || dialed[key] {
			skipped++
			continue
		}
		dialed[key] = true
		out = append(out, t)
	}
	return out, skipped, nil
}
