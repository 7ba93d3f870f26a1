// Package session owns the browser side of a verification run: Chrome
// lifecycle, login, menu navigation, language switching, and evidence
// screenshots. The verification engine only sees it through small
// interfaces, so the whole package is replaceable.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ManagerConfig configures the browser manager.
type ManagerConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless runs Chrome without a visible window. Default true;
	// turn off when a human must complete a two-factor prompt.
	Headless bool

	// Stealth applies anti-automation-detection patches to new pages.
	Stealth bool

	Logger *slog.Logger
}

func (c *ManagerConfig) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages one Chrome instance. Each verification worker owns
// its own Manager; they are never shared.
type Manager struct {
	cfg     ManagerConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg ManagerConfig) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance) and returns
// the Rod browser handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("session: manager is closed")
	}
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("session: connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(m.cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("session: launch chrome: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("session: launched local chrome", "headless", m.cfg.Headless)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("session: connect: %w", err)
	}

	// Banking test environments often run on self-signed certs.
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("session: ignore cert errors failed", "err", err)
	}

	m.browser = b
	return b, nil
}

// NewPage opens a fresh tab, with stealth patches when configured.
func (m *Manager) NewPage() (*rod.Page, error) {
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("session: no active browser")
	}

	if m.cfg.Stealth {
		page, err := stealth.Page(b)
		if err != nil {
			return nil, fmt.Errorf("session: create stealth page: %w", err)
		}
		return page, nil
	}
	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("session: create page: %w", err)
	}
	return page, nil
}

// Close shuts down Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
