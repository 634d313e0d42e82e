// internal/browser/driver.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hometax-cli/internal/wizard"
)

// Driver implements wizard.Driver on a single chromedp tab.
//
// Every element lookup is scoped to the working frame once SwitchToWorkingFrame
// has been called, and to the top document otherwise.
type Driver struct {
	tabCtx        context.Context
	frameID       string
	logger        *zap.Logger
	actionTimeout time.Duration
	run           func(ctx context.Context, actions ...chromedp.Action) error

	mu      sync.Mutex
	frame   *cdp.Node
	pending []string
	notify  chan struct{}
}

var _ wizard.Driver = (*Driver)(nil)

// NewDriver binds a driver to tabCtx, which must be a chromedp tab context,
// and starts listening for JavaScript dialogs on it. frameID is the id of the
// iframe holding the wizard.
func NewDriver(tabCtx context.Context, frameID string, actionTimeout time.Duration, logger *zap.Logger) *Driver {
	d := newDriver(tabCtx, frameID, actionTimeout, logger, chromedp.Run)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if ev, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			d.onDialog(ev.Message)
		}
	})
	return d
}

func newDriver(tabCtx context.Context, frameID string, actionTimeout time.Duration, logger *zap.Logger, run func(context.Context, ...chromedp.Action) error) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		tabCtx:        tabCtx,
		frameID:       frameID,
		logger:        logger.Named("driver"),
		actionTimeout: actionTimeout,
		run:           run,
		notify:        make(chan struct{}, 1),
	}
}

// onDialog queues an opened dialog. It runs on the chromedp event goroutine
// and must not block.
func (d *Driver) onDialog(message string) {
	d.mu.Lock()
	d.pending = append(d.pending, message)
	d.mu.Unlock()
	d.logger.Debug("Dialog opened.", zap.String("message", message))
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *Driver) hasPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending) > 0
}

// opCtx derives a context from the tab that ends at the action timeout or
// when ctx ends, whichever comes first.
func (d *Driver) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(d.tabCtx, d.actionTimeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (d *Driver) classify(ctx, opCtx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("browser: %s: %w", op, ctxErr)
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		d.logger.Debug("Browser action timed out.", zap.String("op", op), zap.Duration("timeout", d.actionTimeout))
		return fmt.Errorf("browser: %s timed out after %v: %w", op, d.actionTimeout, context.DeadlineExceeded)
	}
	return fmt.Errorf("browser: %s: %w", op, err)
}

func (d *Driver) runOp(ctx context.Context, op string, actions ...chromedp.Action) error {
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	return d.classify(ctx, opCtx, op, d.run(opCtx, actions...))
}

func (d *Driver) queryOpts() []chromedp.QueryOption {
	d.mu.Lock()
	defer d.mu.Unlock()
	opts := []chromedp.QueryOption{chromedp.ByID}
	if d.frame != nil {
		opts = append(opts, chromedp.FromNode(d.frame))
	}
	return opts
}

// SetField replaces the content of an input by typing value into it.
func (d *Driver) SetField(ctx context.Context, id, value string) error {
	opts := d.queryOpts()
	return d.runOp(ctx, "set "+id,
		chromedp.Clear(id, opts...),
		chromedp.SendKeys(id, value, opts...),
	)
}

// Click clicks an element. A click that opens a dialog blocks in the browser
// until the dialog is handled, so Click returns as soon as a dialog appears and
// leaves the dispatch to finish in the background.
func (d *Driver) Click(ctx context.Context, id string) error {
	opts := d.queryOpts()
	opCtx, cancel := d.opCtx(ctx)
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- d.run(opCtx, chromedp.Click(id, opts...))
	}()

	for {
		select {
		case err := <-done:
			return d.classify(ctx, opCtx, "click "+id, err)
		case <-d.notify:
			if d.hasPending() {
				d.requeueNotify()
				return nil
			}
		}
	}
}

func (d *Driver) requeueNotify() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

const selectByTextFn = `function(text) {
	for (const o of this.options) {
		if (o.text.trim() === text) {
			this.value = o.value;
			this.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		}
	}
	return false;
}`

// SelectOption picks the option of a <select> whose visible text equals text.
func (d *Driver) SelectOption(ctx context.Context, id, text string) error {
	literal, err := json.Marshal(text)
	if err != nil {
		return fmt.Errorf("browser: encoding option text: %w", err)
	}
	call := "function() { return (" + selectByTextFn + ").call(this, " + string(literal) + "); }"

	var nodes []*cdp.Node
	var matched bool
	err = d.runOp(ctx, "select "+id,
		chromedp.Nodes(id, &nodes, d.queryOpts()...),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return fmt.Errorf("element %q not found", id)
			}
			obj, err := dom.ResolveNode().WithBackendNodeID(nodes[0].BackendNodeID).Do(ctx)
			if err != nil {
				return err
			}
			res, exc, err := runtime.CallFunctionOn(call).
				WithObjectID(obj.ObjectID).
				WithReturnByValue(true).
				Do(ctx)
			if err != nil {
				return err
			}
			if exc != nil {
				return exc
			}
			matched = res != nil && string(res.Value) == "true"
			return nil
		}),
	)
	if err != nil {
		return err
	}
	if !matched {
		return fmt.Errorf("browser: select %s: no option with text %q", id, text)
	}
	return nil
}

// IsChecked reads the checked property of a checkbox or radio input.
func (d *Driver) IsChecked(ctx context.Context, id string) (bool, error) {
	var checked bool
	err := d.runOp(ctx, "read checked "+id, chromedp.JavascriptAttribute(id, "checked", &checked, d.queryOpts()...))
	return checked, err
}

// ReadText returns the visible text of an element.
func (d *Driver) ReadText(ctx context.Context, id string) (string, error) {
	var text string
	err := d.runOp(ctx, "read text "+id, chromedp.Text(id, &text, d.queryOpts()...))
	return text, err
}

// Exists reports whether an element with the id is in the current context.
// It does not wait for the element to appear.
func (d *Driver) Exists(ctx context.Context, id string) (bool, error) {
	var nodes []*cdp.Node
	opts := append(d.queryOpts(), chromedp.AtLeast(0))
	if err := d.runOp(ctx, "lookup "+id, chromedp.Nodes(id, &nodes, opts...)); err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

// SwitchToDefaultContext scopes lookups to the top document and dismisses any
// dialog left open by an earlier record.
func (d *Driver) SwitchToDefaultContext(ctx context.Context) error {
	d.mu.Lock()
	d.frame = nil
	stale := len(d.pending)
	d.pending = nil
	d.mu.Unlock()

	if stale > 0 {
		d.logger.Warn("Dismissing stale dialogs.", zap.Int("count", stale))
		for i := 0; i < stale; i++ {
			if err := d.runOp(ctx, "dismiss stale dialog", page.HandleJavaScriptDialog(false)); err != nil {
				return err
			}
		}
	}
	return nil
}

// SwitchToWorkingFrame resolves the wizard iframe in the top document and
// scopes later lookups to it.
func (d *Driver) SwitchToWorkingFrame(ctx context.Context) error {
	var nodes []*cdp.Node
	if err := d.runOp(ctx, "frame "+d.frameID, chromedp.Nodes(d.frameID, &nodes, chromedp.ByID, chromedp.AtLeast(0))); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("browser: frame %q not found", d.frameID)
	}
	d.mu.Lock()
	d.frame = nodes[0]
	d.mu.Unlock()
	return nil
}

func (d *Driver) ScrollToTop(ctx context.Context) error {
	return d.runOp(ctx, "scroll", chromedp.Evaluate(`window.scrollTo(0, 0)`, nil))
}

// WaitForModal returns the message of the next open dialog. It fails with an
// error wrapping wizard.ErrModalTimeout when none opens within timeout.
func (d *Driver) WaitForModal(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		d.mu.Lock()
		if len(d.pending) > 0 {
			msg := d.pending[0]
			d.pending = d.pending[1:]
			d.mu.Unlock()
			return msg, nil
		}
		d.mu.Unlock()

		select {
		case <-d.notify:
		case <-timer.C:
			return "", fmt.Errorf("%w after %v", wizard.ErrModalTimeout, timeout)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// AcceptModal presses OK on the open dialog.
func (d *Driver) AcceptModal(ctx context.Context) error {
	return d.runOp(ctx, "accept dialog", page.HandleJavaScriptDialog(true))
}

// DismissModal presses Cancel on the open dialog.
func (d *Driver) DismissModal(ctx context.Context) error {
	return d.runOp(ctx, "dismiss dialog", page.HandleJavaScriptDialog(false))
}
