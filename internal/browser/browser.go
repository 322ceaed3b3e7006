package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Manager owns the shared headless browser process. The browser is expensive
// to launch, so one process is lazily started and reused across requests;
// each request gets its own page so concurrent extractions do not block each
// other. Shutdown must be called on process exit.
type Manager struct {
	logger   *slog.Logger
	disabled bool

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewManager creates a browser manager. Nothing is launched until the first
// page is requested.
func NewManager(logger *slog.Logger, disabled bool) *Manager {
	return &Manager{
		logger:   logger,
		disabled: disabled,
	}
}

// Available reports whether browser-based strategies can be attempted
func (m *Manager) Available() bool {
	return !m.disabled
}

// NewPage returns a fresh page bound to ctx. The caller owns the page and
// must close it.
func (m *Manager) NewPage(ctx context.Context) (*rod.Page, error) {
	if m.disabled {
		return nil, fmt.Errorf("headless browser is disabled")
	}

	browser, err := m.connect()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return page.Context(ctx), nil
}

// connect lazily launches the browser process and connects to it
func (m *Manager) connect() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return m.browser, nil
	}

	m.logger.Info("Launching headless browser")

	l := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	m.launcher = l
	m.browser = browser
	m.logger.Info("Headless browser ready")

	return browser, nil
}

// Shutdown closes the shared browser process if one was launched
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return
	}

	m.logger.Info("Shutting down headless browser")

	if err := m.browser.Close(); err != nil {
		m.logger.Warn("Failed to close browser cleanly", "error", err)
	}
	if m.launcher != nil {
		m.launcher.Cleanup()
	}

	m.browser = nil
	m.launcher = nil
}
