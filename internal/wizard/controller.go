// internal/wizard/controller.go
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/hometax-cli/internal/record"
	"go.uber.org/zap"
)

// Step is the wizard page a record is currently on.
type Step int

const (
	StepIdentification Step = iota
	Step1CurrentJob
	Step2Deductions
	Step3Pension
	StepFinal
)

func (s Step) String() string {
	switch s {
	case StepIdentification:
		return "identification"
	case Step1CurrentJob:
		return "step1-current-job"
	case Step2Deductions:
		return "step2-deductions"
	case Step3Pension:
		return "step3-pension"
	case StepFinal:
		return "final"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Outcome is the result of a Submit that did not fail.
type Outcome int

const (
	// Failed is returned alongside a non-nil error.
	Failed Outcome = iota
	// Committed means the site confirmed the record was added.
	Committed
	// Duplicate means the site already holds this record. Not a failure.
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Duplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// Controller walks one record at a time through the wizard. It holds no data
// across records beyond the current step; Reset re-synchronizes it with the page.
type Controller struct {
	driver   Driver
	settings Settings
	logger   *zap.Logger
	step     Step
}

// NewController validates settings and returns a controller bound to driver.
func NewController(driver Driver, settings Settings, logger *zap.Logger) (*Controller, error) {
	if driver == nil {
		return nil, errors.New("wizard: driver cannot be nil")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		driver:   driver,
		settings: settings,
		logger:   logger.Named("wizard"),
		step:     StepIdentification,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Step returns the step the controller last entered.
func (c *Controller) Step() Step {
	return c.step
}

// Preflight checks once per run that the browser shows the entry page: the
// working frame exists in the top document and, when configured, the entry
// marker carries the expected text.
func (c *Controller) Preflight(ctx context.Context) error {
	d := c.driver
	if err := d.SwitchToDefaultContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrWrongStartPage, err)
	}
	if err := d.ScrollToTop(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrWrongStartPage, err)
	}
	ok, err := d.Exists(ctx, c.settings.WorkingFrame)
	if err != nil {
		return fmt.Errorf("%w: looking up frame %q: %v", ErrWrongStartPage, c.settings.WorkingFrame, err)
	}
	if !ok {
		return fmt.Errorf("%w: frame %q not found", ErrWrongStartPage, c.settings.WorkingFrame)
	}

	if want := c.settings.Messages.EntryText; want != "" && c.settings.Elements.Has(KeyEntryMarker) {
		if err := d.SwitchToWorkingFrame(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrWrongStartPage, err)
		}
		got, err := d.ReadText(ctx, c.settings.Elements.ID(KeyEntryMarker))
		if err != nil {
			return fmt.Errorf("%w: reading entry marker: %v", ErrWrongStartPage, err)
		}
		if !strings.Contains(got, want) {
			return fmt.Errorf("%w: entry marker reads %q", ErrWrongStartPage, got)
		}
	}
	c.logger.Info("Entry page confirmed.", zap.String("frame", c.settings.WorkingFrame))
	return nil
}

// Reset returns the page to an empty identification step: default content,
// scroll to top, working frame, reset control. Safe to call from any state.
func (c *Controller) Reset(ctx context.Context) error {
	d := c.driver
	if err := d.SwitchToDefaultContext(ctx); err != nil {
		return fmt.Errorf("wizard: reset: %w", err)
	}
	if err := d.ScrollToTop(ctx); err != nil {
		return fmt.Errorf("wizard: reset: %w", err)
	}
	if err := d.SwitchToWorkingFrame(ctx); err != nil {
		return fmt.Errorf("wizard: reset: %w", err)
	}
	if err := d.Click(ctx, c.settings.Elements.ID(KeyReset)); err != nil {
		return fmt.Errorf("wizard: reset: %w", err)
	}
	if err := sleepContext(ctx, c.settings.Timeouts.Settle); err != nil {
		return fmt.Errorf("wizard: reset: %w", err)
	}
	c.step = StepIdentification
	return nil
}

// Submit drives rec from identification through the final add. Any failure
// and a duplicate both leave the page reset. A successful commit leaves the
// page as the site presents it; callers reset before the next record.
func (c *Controller) Submit(ctx context.Context, rec record.Record) (Outcome, error) {
	outcome, err := c.submit(ctx, rec)
	if err != nil {
		c.logger.Warn("Record failed.",
			zap.String("step", c.step.String()),
			zap.String("name", rec.Name),
			zap.Error(err))
		if rerr := c.Reset(ctx); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return Failed, err
	}
	if outcome == Duplicate {
		c.logger.Info("Record already exists, skipping.", zap.String("name", rec.Name))
		if rerr := c.Reset(ctx); rerr != nil {
			// The next iteration resets again before touching the page.
			c.logger.Warn("Reset after duplicate failed.", zap.Error(rerr))
		}
		return Duplicate, nil
	}
	c.logger.Info("Record committed.", zap.String("name", rec.Name))
	return outcome, nil
}

func (c *Controller) submit(ctx context.Context, rec record.Record) (Outcome, error) {
	steps := []func(context.Context, record.Record) error{
		c.identify,
		c.currentJob,
		c.deductions,
		c.pension,
	}
	for _, step := range steps {
		if err := step(ctx, rec); err != nil {
			return Failed, err
		}
	}
	return c.final(ctx)
}

func (c *Controller) identify(ctx context.Context, rec record.Record) error {
	c.enter(StepIdentification)
	if err := c.setFields(ctx, StepIdentification,
		KeyName, rec.Name,
		KeyPersonalID, rec.PersonalID,
	); err != nil {
		return err
	}
	if err := c.click(ctx, StepIdentification, KeyCheckPersonalID); err != nil {
		return err
	}
	msg, err := c.closeModal(ctx, StepIdentification, c.settings.Timeouts.IDCheck, false)
	if err != nil {
		return err
	}
	if !hasPrefix(msg, c.settings.Messages.Verified) {
		return &StepError{Step: StepIdentification, Modal: msg, Err: ErrValidationRejected}
	}

	label := c.settings.Messages.HouseholdMember
	if rec.IsHeadOfHousehold() {
		label = c.settings.Messages.HeadOfHousehold
	}
	if err := c.driver.SelectOption(ctx, c.id(KeyHeadOfHousehold), label); err != nil {
		return c.fail(StepIdentification, fmt.Errorf("selecting %q: %w", label, err))
	}

	flag := KeyContinuesToWorkNo
	if rec.IsOngoing() {
		flag = KeyContinuesToWorkYes
	}
	return c.click(ctx, StepIdentification, flag)
}

func (c *Controller) currentJob(ctx context.Context, rec record.Record) error {
	c.enter(Step1CurrentJob)
	if err := c.click(ctx, Step1CurrentJob, KeyStep1Next); err != nil {
		return err
	}
	if err := c.settle(ctx, Step1CurrentJob); err != nil {
		return err
	}
	if err := c.setFields(ctx, Step1CurrentJob,
		KeyStartDate, rec.StartDate,
		KeyEndDate, rec.EndDate,
		KeySalary, rec.Salary,
		KeyIncomeTax, rec.IncomeTax,
		KeyLocalIncomeTax, rec.LocalIncomeTax,
	); err != nil {
		return err
	}
	return c.confirm(ctx, Step1CurrentJob, KeyStep1Confirm)
}

func (c *Controller) deductions(ctx context.Context, rec record.Record) error {
	c.enter(Step2Deductions)
	if rec.IsWomanDeductionEligible() {
		id := c.id(KeyWomanDeduction)
		checked, err := c.driver.IsChecked(ctx, id)
		if err != nil {
			return c.fail(Step2Deductions, fmt.Errorf("reading %s: %w", KeyWomanDeduction, err))
		}
		if !checked {
			if err := c.click(ctx, Step2Deductions, KeyWomanDeduction); err != nil {
				return err
			}
		}
		if err := c.settle(ctx, Step2Deductions); err != nil {
			return err
		}
	}
	if err := c.setFields(ctx, Step2Deductions,
		KeyHealthInsurance, rec.HealthInsurance,
		KeyEmploymentInsurance, rec.EmploymentInsurance,
	); err != nil {
		return err
	}
	return c.confirm(ctx, Step2Deductions, KeyStep2Confirm)
}

// pension has no confirm of its own; the value is picked up by recalculation.
func (c *Controller) pension(ctx context.Context, rec record.Record) error {
	c.enter(Step3Pension)
	return c.setFields(ctx, Step3Pension, KeyNationalPension, rec.NationalPension)
}

func (c *Controller) final(ctx context.Context) (Outcome, error) {
	c.enter(StepFinal)
	t := c.settings.Timeouts
	m := c.settings.Messages

	if err := c.click(ctx, StepFinal, KeyRecalculate); err != nil {
		return Failed, err
	}
	msg, err := c.closeModal(ctx, StepFinal, t.Recalculation, false)
	if err != nil {
		return Failed, err
	}
	if err := c.settle(ctx, StepFinal); err != nil {
		return Failed, err
	}
	if !hasPrefix(msg, m.Recalculated) {
		return Failed, &StepError{Step: StepFinal, Modal: msg, Err: ErrRecalculationFailed}
	}

	if err := c.click(ctx, StepFinal, KeyAdd); err != nil {
		return Failed, err
	}
	if _, err := c.waitModal(ctx, StepFinal, t.SubmitConfirm); err != nil {
		return Failed, err
	}
	if err := c.driver.AcceptModal(ctx); err != nil {
		return Failed, c.fail(StepFinal, fmt.Errorf("accepting add confirmation: %w", err))
	}
	result, err := c.waitModal(ctx, StepFinal, t.SubmitResult)
	if err != nil {
		return Failed, err
	}
	if err := c.driver.AcceptModal(ctx); err != nil {
		return Failed, c.fail(StepFinal, fmt.Errorf("accepting add result: %w", err))
	}

	switch {
	case hasPrefix(result, m.Processed):
		if err := c.driver.SwitchToWorkingFrame(ctx); err != nil {
			return Failed, c.fail(StepFinal, err)
		}
		return Committed, nil
	case hasPrefix(result, m.Duplicate):
		return Duplicate, nil
	default:
		return Failed, &StepError{Step: StepFinal, Modal: result, Err: ErrSubmissionFailed}
	}
}

func (c *Controller) enter(s Step) {
	c.step = s
	c.logger.Debug("Entering step.", zap.String("step", s.String()))
}

func (c *Controller) id(key string) string {
	return c.settings.Elements.ID(key)
}

func (c *Controller) fail(s Step, err error) error {
	return &StepError{Step: s, Err: err}
}

// setFields takes alternating key, value pairs.
func (c *Controller) setFields(ctx context.Context, s Step, kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := c.driver.SetField(ctx, c.id(kv[i]), kv[i+1]); err != nil {
			return c.fail(s, fmt.Errorf("setting %s: %w", kv[i], err))
		}
	}
	return nil
}

func (c *Controller) click(ctx context.Context, s Step, key string) error {
	if err := c.driver.Click(ctx, c.id(key)); err != nil {
		return c.fail(s, fmt.Errorf("clicking %s: %w", key, err))
	}
	return nil
}

func (c *Controller) settle(ctx context.Context, s Step) error {
	if err := sleepContext(ctx, c.settings.Timeouts.Settle); err != nil {
		return c.fail(s, err)
	}
	return nil
}

// waitModal maps a driver deadline into ErrModalTimeout so callers can
// classify it without knowing the driver.
func (c *Controller) waitModal(ctx context.Context, s Step, timeout time.Duration) (string, error) {
	msg, err := c.driver.WaitForModal(ctx, timeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrModalTimeout) {
			err = fmt.Errorf("%w: %w", ErrModalTimeout, err)
		}
		return "", c.fail(s, err)
	}
	c.logger.Debug("Modal opened.", zap.String("step", s.String()), zap.String("text", msg))
	return msg, nil
}

// closeModal waits for a modal, closes it and returns to the working frame.
func (c *Controller) closeModal(ctx context.Context, s Step, timeout time.Duration, accept bool) (string, error) {
	msg, err := c.waitModal(ctx, s, timeout)
	if err != nil {
		return "", err
	}
	if accept {
		err = c.driver.AcceptModal(ctx)
	} else {
		err = c.driver.DismissModal(ctx)
	}
	if err != nil {
		return msg, c.fail(s, fmt.Errorf("closing modal: %w", err))
	}
	if err := c.driver.SwitchToWorkingFrame(ctx); err != nil {
		return msg, c.fail(s, err)
	}
	return msg, nil
}

// confirm clicks a step's confirm control and accepts the modal it opens.
func (c *Controller) confirm(ctx context.Context, s Step, key string) error {
	if err := c.click(ctx, s, key); err != nil {
		return err
	}
	if _, err := c.closeModal(ctx, s, c.settings.Timeouts.Confirm, true); err != nil {
		return err
	}
	return c.settle(ctx, s)
}

func hasPrefix(msg, prefix string) bool {
	return strings.HasPrefix(strings.TrimSpace(msg), prefix)
}
