// File: internal/orchestrator/orchestrator.go
// Description: Runs one input file through the wizard, record by record. A
// failure of one record is reported and never stops the run.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/hometax-cli/internal/record"
	"github.com/xkilldash9x/hometax-cli/internal/report"
	"github.com/xkilldash9x/hometax-cli/internal/source"
	"github.com/xkilldash9x/hometax-cli/internal/wizard"
)

// RecordSource yields input rows one at a time.
type RecordSource interface {
	Next() (source.Result, error)
}

// FormController drives the wizard for one record.
type FormController interface {
	Preflight(ctx context.Context) error
	Reset(ctx context.Context) error
	Submit(ctx context.Context, rec record.Record) (wizard.Outcome, error)
}

// Result summarizes a run. Report always holds the failed rows collected so
// far, even when Run also returns an error.
type Result struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Records     []RecordOutcome `json:"records"`
	Committed   int             `json:"committed"`
	Duplicates  int             `json:"duplicates"`
	Invalid     int             `json:"invalid"`
	Failed      int             `json:"failed"`
	Interrupted bool            `json:"interrupted"`
	Report      *report.Report  `json:"-"`
}

// Processed is the number of rows that reached a final state.
func (r *Result) Processed() int {
	return len(r.Records)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver routes lifecycle events to obs.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithPacing spaces iterations at least interval apart. Zero disables pacing.
func WithPacing(interval time.Duration) Option {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.limiter = rate.NewLimiter(rate.Every(interval), 1)
		} else {
			o.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.runID = id
		}
	}
}

// Orchestrator owns the error report of a run.
type Orchestrator struct {
	src      RecordSource
	ctrl     FormController
	logger   *zap.Logger
	observer Observer
	limiter  *rate.Limiter
	runID    string
	now      func() time.Time
}

// New creates an orchestrator over a source and a live controller.
func New(src RecordSource, ctrl FormController, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if src == nil || ctrl == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	o := &Orchestrator{
		src:      src,
		ctrl:     ctrl,
		logger:   logger.Named("orchestrator"),
		observer: nopObserver{},
		limiter:  rate.NewLimiter(rate.Inf, 1),
		runID:    uuid.NewString(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunID identifies this run in events, logs and the journal.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run checks the start page once, then processes rows until the source is
// exhausted or ctx is cancelled. Cancellation is honored between records
// only; a record in flight finishes under its own timeouts.
//
// A failed preflight returns an error wrapping wizard.ErrWrongStartPage and a
// nil Result. A source read failure stops the run and returns the partial
// Result together with the error.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	log := o.logger.With(zap.String("run_id", o.runID))

	if err := o.ctrl.Preflight(ctx); err != nil {
		log.Error("Preflight failed, no record was processed.", zap.Error(err))
		return nil, err
	}

	res := &Result{RunID: o.runID, StartedAt: o.now(), Report: &report.Report{}}
	o.observer.OnEvent(Event{Type: RunStarted, RunID: o.runID, Time: res.StartedAt})
	log.Info("Run started.")

	work := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}
		if err := o.limiter.Wait(ctx); err != nil {
			res.Interrupted = true
			break
		}

		resetErr := o.ctrl.Reset(work)

		next, err := o.src.Next()
		if err != nil {
			o.finish(log, res)
			return res, fmt.Errorf("orchestrator: reading input: %w", err)
		}
		if next.Outcome == source.Exhausted {
			break
		}
		o.process(work, log, res, next, resetErr)
	}

	o.finish(log, res)
	return res, nil
}

func (o *Orchestrator) process(ctx context.Context, log *zap.Logger, res *Result, next source.Result, resetErr error) {
	out := RecordOutcome{Row: next.Row, Name: next.Raw.Cell(record.ColName)}

	switch {
	case next.Outcome == source.Invalid:
		out.Status = StatusInvalid
		out.Kind = report.KindValidation
		out.Reason = errorText(next.Err)
	case resetErr != nil:
		out.Status = StatusFailed
		out.Kind = report.KindAutomation
		out.Reason = resetErr.Error()
	default:
		outcome, err := o.submit(ctx, next.Record)
		switch {
		case err != nil:
			out.Status = StatusFailed
			out.Kind = Classify(err)
			out.Reason = err.Error()
		case outcome == wizard.Duplicate:
			out.Status = StatusDuplicate
		default:
			out.Status = StatusCommitted
		}
	}

	switch out.Status {
	case StatusCommitted:
		res.Committed++
	case StatusDuplicate:
		res.Duplicates++
	case StatusInvalid:
		res.Invalid++
	case StatusFailed:
		res.Failed++
	}
	if out.Kind != "" {
		res.Report.Add(next.Row, next.Raw, out.Kind, out.Reason)
		log.Warn("Record diverted to error report.",
			zap.Int("row", next.Row),
			zap.Strings("raw", next.Raw),
			zap.String("kind", string(out.Kind)),
			zap.String("reason", out.Reason))
	} else {
		log.Info("Record processed.", zap.Int("row", next.Row), zap.String("status", string(out.Status)))
	}

	res.Records = append(res.Records, out)
	o.observer.OnEvent(Event{Type: RecordProcessed, RunID: o.runID, Time: o.now(), Record: &out})
}

// submit converts a panic in the page layer into an automation failure of the
// current record.
func (o *Orchestrator) submit(ctx context.Context, rec record.Record) (outcome wizard.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = wizard.Failed, fmt.Errorf("orchestrator: panic while submitting: %v", r)
		}
	}()
	return o.ctrl.Submit(ctx, rec)
}

func (o *Orchestrator) finish(log *zap.Logger, res *Result) {
	res.FinishedAt = o.now()
	log.Info("Run completed.",
		zap.Int("processed", res.Processed()),
		zap.Int("committed", res.Committed),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("invalid", res.Invalid),
		zap.Int("failed", res.Failed),
		zap.Bool("interrupted", res.Interrupted),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	o.observer.OnEvent(Event{Type: RunCompleted, RunID: o.runID, Time: res.FinishedAt, Result: res})
}

// Classify maps a per-record error to its report kind.
func Classify(err error) report.Kind {
	var verr *record.ValidationError
	switch {
	case errors.As(err, &verr):
		return report.KindValidation
	case errors.Is(err, wizard.ErrValidationRejected):
		return report.KindRejected
	case errors.Is(err, wizard.ErrRecalculationFailed):
		return report.KindRecalculation
	case errors.Is(err, wizard.ErrSubmissionFailed):
		return report.KindSubmission
	default:
		return report.KindAutomation
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
