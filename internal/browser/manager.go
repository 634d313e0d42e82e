// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"net/url"
	goruntime "runtime"
	"strings"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hometax-cli/internal/config"
)

// Manager owns the browser process (or the connection to a running one) and
// the single tab the wizard is driven in.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig
	remote bool

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCancel   context.CancelFunc
	tabCtx          context.Context
	tabCancel       context.CancelFunc
}

// NewManager launches the configured browser with its persistent profile, or
// attaches to the one at cfg.RemoteURL, and verifies it responds.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("cannot initialize browser manager with nil logger")
	}
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
		remote: cfg.RemoteURL != "",
	}

	var err error
	if m.remote {
		err = m.attach(ctx)
	} else {
		err = m.launch(ctx)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) launch(ctx context.Context) error {
	opts, err := allocatorOptions(m.cfg)
	if err != nil {
		return err
	}
	m.logger.Info("Launching browser...", zap.Bool("headless", m.cfg.Headless), zap.String("exec_path", m.cfg.ExecPath))

	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)
	m.tabCtx, m.tabCancel = chromedp.NewContext(m.allocatorCtx, chromedp.WithLogf(m.logger.Sugar().Debugf))

	// The first Run allocates the browser under the tab context; a deadline on
	// that call would bound the browser's lifetime, so it is enforced here.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(m.tabCtx) }()
	select {
	case err := <-started:
		if err != nil {
			m.allocatorCancel()
			return fmt.Errorf("browser failed to start: %w", err)
		}
	case <-time.After(m.launchTimeout()):
		m.allocatorCancel()
		return fmt.Errorf("browser did not start within %v", m.launchTimeout())
	}

	probeCtx, cancel := context.WithTimeout(m.tabCtx, m.launchTimeout())
	defer cancel()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

func (m *Manager) attach(ctx context.Context) error {
	m.logger.Info("Attaching to running browser.", zap.String("remote_url", m.cfg.RemoteURL))
	m.allocatorCtx, m.allocatorCancel = chromedp.NewRemoteAllocator(ctx, m.cfg.RemoteURL)

	var browserCtx context.Context
	browserCtx, m.browserCancel = chromedp.NewContext(m.allocatorCtx)
	listCtx, cancel := context.WithTimeout(browserCtx, m.launchTimeout())
	defer cancel()
	targets, err := chromedp.Targets(listCtx)
	if err != nil {
		m.allocatorCancel()
		return fmt.Errorf("listing browser tabs: %w", err)
	}

	t := pickTarget(targets, m.cfg.SiteURL)
	if t == nil {
		m.allocatorCancel()
		return fmt.Errorf("no open tab found in the attached browser")
	}
	m.tabCtx, m.tabCancel = chromedp.NewContext(browserCtx, chromedp.WithTargetID(t.TargetID))
	if err := chromedp.Run(m.tabCtx); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("attaching to tab %q: %w", t.URL, err)
	}
	m.logger.Info("Attached to tab.", zap.String("url", t.URL))
	return nil
}

// pickTarget prefers a page already showing the site over any other page.
func pickTarget(targets []*target.Info, siteURL string) *target.Info {
	host := ""
	if u, err := url.Parse(siteURL); err == nil {
		host = u.Host
	}
	var first *target.Info
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if host != "" && strings.Contains(t.URL, host) {
			return t
		}
		if first == nil {
			first = t
		}
	}
	return first
}

func (m *Manager) launchTimeout() time.Duration {
	if m.cfg.LaunchTimeout > 0 {
		return m.cfg.LaunchTimeout
	}
	return 30 * time.Second
}

// allocatorOptions starts from the chromedp defaults and applies the
// configured profile and flags on top; later flags win.
func allocatorOptions(cfg config.BrowserConfig) ([]chromedp.ExecAllocatorOption, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	flags, err := launchFlags(cfg, goruntime.GOOS)
	if err != nil {
		return nil, err
	}
	for name, value := range flags {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts, nil
}

// launchFlags returns the command line flags for a launch, keyed by flag name
// without the leading dashes.
func launchFlags(cfg config.BrowserConfig, goos string) (map[string]interface{}, error) {
	flags := map[string]interface{}{
		"enable-automation":      false,
		"headless":               cfg.Headless,
		"disable-blink-features": "AutomationControlled",
		"disable-gpu":            cfg.Headless,
		"disable-extensions":     false,
	}
	if cfg.UserAgent != "" {
		flags["user-agent"] = cfg.UserAgent
	}
	if cfg.ProfileDir != "" {
		dir, err := homedir.Expand(cfg.ProfileDir)
		if err != nil {
			return nil, fmt.Errorf("expanding profile dir: %w", err)
		}
		flags["user-data-dir"] = dir
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
		flags["allow-insecure-localhost"] = true
	}

	// Flags required for running inside containers (e.g., Docker on Linux).
	if goos == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}
	return flags, nil
}

// Driver returns a wizard driver bound to the managed tab whose working frame
// is the iframe with id frameID.
func (m *Manager) Driver(frameID string) *Driver {
	return NewDriver(m.tabCtx, frameID, m.cfg.ActionTimeout, m.logger)
}

// Navigate loads url in the managed tab.
func (m *Manager) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(m.tabCtx, m.launchTimeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// Version reports the browser product string, e.g. "Chrome/121.0.6167.85".
func (m *Manager) Version(ctx context.Context) (string, error) {
	vCtx, cancel := context.WithTimeout(m.tabCtx, 10*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var product string
	err := chromedp.Run(vCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		_, product, _, _, _, err = cdpbrowser.GetVersion().Do(ctx)
		return err
	}))
	if err != nil {
		return "", fmt.Errorf("reading browser version: %w", err)
	}
	return product, nil
}

// Shutdown closes the launched browser. An attached browser is left running
// with its tabs; only the connection is closed.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated.")
	if m.allocatorCancel == nil {
		return nil
	}
	if !m.remote && m.tabCancel != nil {
		m.tabCancel()
	}
	// Closes the DevTools connection of an attached browser.
	if m.browserCancel != nil {
		m.browserCancel()
	}
	m.allocatorCancel()

	select {
	case <-m.allocatorCtx.Done():
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded.", zap.Error(ctx.Err()))
		return ctx.Err()
	}
	m.logger.Info("Browser manager shutdown complete.")
	return nil
}
