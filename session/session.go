package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/bictech/transcheck/catalog"
	"github.com/bictech/transcheck/pagescan"
)

// Candidate locators tried in order. Banking frontends vary between
// deployments; the first present element wins.
var (
	usernameSelectors = []string{
		`input[name="username"]`, `#username`, `input[name="user"]`,
		`input[type="text"][autocomplete="username"]`, `input[type="email"]`,
	}
	passwordSelectors = []string{
		`input[name="password"]`, `#password`, `input[type="password"]`,
	}
	loginButtonSelectors = []string{
		`button[type="submit"]`, `#login-button`, `input[type="submit"]`, `.btn-login`,
	}
	languageToggleSelectors = []string{
		`#language-selector`, `.language-selector`, `.lang-dropdown`,
		`[data-toggle="language"]`, `.language-switcher`,
	}
)

// displayName is the label shown in the application's language
// dropdown, which is not the same as the report-facing name.
func displayName(lang catalog.Language) string {
	switch lang {
	case catalog.English:
		return "English"
	case catalog.Khmer:
		return "ខ្មែរ"
	case catalog.Chinese:
		return "中文"
	}
	return string(lang)
}

// Config configures one logged-in browser session.
type Config struct {
	BaseURL  string
	Username string
	Password string

	// TwoFactorWait pauses after login submission so a human can
	// complete an OTP prompt. Zero skips the pause.
	TwoFactorWait time.Duration

	// WaitTimeout bounds waits for page readiness. Default 15s.
	WaitTimeout time.Duration

	// ProbeTimeout bounds each candidate-locator probe. Default 2s.
	ProbeTimeout time.Duration

	ScreenshotDir string
	Retry         Retry
	Logger        *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 15 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is one logged-in browser tab walking the application under
// test. It satisfies the verification engine's Session and Scanner
// contracts.
type Session struct {
	cfg       Config
	page      *rod.Page
	logger    *slog.Logger
	transient int
}

func New(page *rod.Page, cfg Config) *Session {
	cfg.applyDefaults()
	return &Session{cfg: cfg, page: page, logger: cfg.Logger}
}

// Page exposes the underlying tab for callers that need direct access.
func (s *Session) Page() *rod.Page { return s.page }

// Open navigates to the application entry point.
func (s *Session) Open(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.WaitTimeout)
	defer cancel()

	if err := s.page.Context(navCtx).Navigate(s.cfg.BaseURL); err != nil {
		return fmt.Errorf("session: navigate %s: %w", s.cfg.BaseURL, err)
	}
	if err := s.page.Context(navCtx).WaitLoad(); err != nil {
		s.logger.Warn("session: wait load timeout", "url", s.cfg.BaseURL, "err", err)
	}
	return nil
}

// Login fills and submits the credential form, then waits out the
// optional two-factor pause.
func (s *Session) Login(ctx context.Context) error {
	return s.cfg.Retry.Do(ctx, s.logger, "login", func() error {
		user, err := s.findFirst(ctx, usernameSelectors)
		if err != nil {
			return fmt.Errorf("session: username field: %w", err)
		}
		if err := fill(user, s.cfg.Username); err != nil {
			return fmt.Errorf("session: enter username: %w", err)
		}

		pass, err := s.findFirst(ctx, passwordSelectors)
		if err != nil {
			return fmt.Errorf("session: password field: %w", err)
		}
		if err := fill(pass, s.cfg.Password); err != nil {
			return fmt.Errorf("session: enter password: %w", err)
		}

		btn, err := s.findFirst(ctx, loginButtonSelectors)
		if err != nil {
			return fmt.Errorf("session: login button: %w", err)
		}
		if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("session: submit login: %w", err)
		}

		if s.cfg.TwoFactorWait > 0 {
			s.logger.Info("session: waiting for two-factor entry",
				"wait", s.cfg.TwoFactorWait.String())
			if err := sleepCtx(ctx, s.cfg.TwoFactorWait); err != nil {
				return err
			}
		}

		if err := s.page.Context(ctx).Timeout(s.cfg.WaitTimeout).WaitLoad(); err != nil {
			s.logger.Warn("session: post-login wait", "err", err)
		}
		return nil
	})
}

// NavigateMenu walks a menu path: the first entry is a main-menu span,
// the rest are submenu items.
func (s *Session) NavigateMenu(ctx context.Context, path []string) error {
	if len(path) == 0 {
		return nil
	}
	return s.cfg.Retry.Do(ctx, s.logger, "navigate "+path[len(path)-1], func() error {
		if err := s.clickText(ctx, "span", path[0]); err != nil {
			return err
		}
		for _, item := range path[1:] {
			if err := s.clickText(ctx, "li, a", item); err != nil {
				return err
			}
		}
		s.settle(ctx)
		return nil
	})
}

// SwitchLanguage opens the language dropdown and picks the entry for
// lang. Failure here fails the whole page for that language.
func (s *Session) SwitchLanguage(ctx context.Context, lang catalog.Language) error {
	label := displayName(lang)
	return s.cfg.Retry.Do(ctx, s.logger, "switch language to "+string(lang), func() error {
		toggle, err := s.findFirst(ctx, languageToggleSelectors)
		if err != nil {
			return fmt.Errorf("session: language toggle: %w", err)
		}
		if err := toggle.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("session: open language dropdown: %w", err)
		}
		if err := s.clickText(ctx, "li, a, span, button", label); err != nil {
			return fmt.Errorf("session: pick language %q: %w", label, err)
		}
		s.settle(ctx)
		s.logger.Info("session: language switched", "language", lang.Name())
		return nil
	})
}

// Snapshot collects the page's translatable elements. Elements that
// detach mid-scan are dropped with a warning and counted; see
// TransientSkips.
func (s *Session) Snapshot(ctx context.Context) ([]pagescan.ElementRef, error) {
	refs, skipped, err := pagescan.Scan(ctx, s.page)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.transient += skipped
		s.logger.Warn("session: stale elements skipped during snapshot", "skipped", skipped)
	}
	return refs, nil
}

// TransientSkips reports how many elements vanished mid-snapshot over
// the session's lifetime.
func (s *Session) TransientSkips() int { return s.transient }

// HTML serialises the current DOM, used for offline re-checks of a
// failed page.
func (s *Session) HTML(ctx context.Context) ([]byte, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("session: get DOM: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// Screenshot captures the viewport as PNG under the configured
// directory. name carries no extension; .png is appended here.
func (s *Session) Screenshot(ctx context.Context, name string) (string, error) {
	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", fmt.Errorf("session: capture screenshot: %w", err)
	}

	if err := os.MkdirAll(s.cfg.ScreenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("session: screenshot dir: %w", err)
	}
	path := filepath.Join(s.cfg.ScreenshotDir, name+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("session: write screenshot: %w", err)
	}
	return path, nil
}

// findFirst probes candidate selectors in order with a short timeout
// each and returns the first element present.
func (s *Session) findFirst(ctx context.Context, selectors []string) (*rod.Element, error) {
	for _, sel := range selectors {
		el, err := s.page.Context(ctx).Timeout(s.cfg.ProbeTimeout).Element(sel)
		if err == nil {
			return el, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("session: none of %d candidate locators matched", len(selectors))
}

// clickText clicks the first element matching selector whose text
// equals text exactly.
func (s *Session) clickText(ctx context.Context, selector, text string) error {
	el, err := s.page.Context(ctx).Timeout(s.cfg.WaitTimeout).
		ElementR(selector, "^"+regexp.QuoteMeta(text)+"$")
	if err != nil {
		return fmt.Errorf("session: find %q: %w", text, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("session: click %q: %w", text, err)
	}
	return nil
}

// settle waits for the page to stop mutating after a click. Timeouts
// are tolerated; the snapshot tolerates residual churn.
func (s *Session) settle(ctx context.Context) {
	if err := s.page.Context(ctx).Timeout(s.cfg.WaitTimeout).WaitStable(time.Second); err != nil {
		s.logger.Debug("session: page did not settle", "err", err)
	}
}

func fill(el *rod.Element, value string) error {
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}
