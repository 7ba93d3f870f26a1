package checker

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bictech/transcheck/catalog"
)

// Config is the top-level run configuration.
type Config struct {
	// BaseURL is the application entry point.
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// TwoFactorWait pauses after login for manual OTP entry.
	TwoFactorWait time.Duration `yaml:"two_factor_wait"`

	// Catalog is the path to the reference spreadsheet (xlsx/csv/tsv).
	Catalog string `yaml:"catalog"`

	Pages []PageConfig `yaml:"pages"`

	// Languages to verify, codes en/kh/cn. English always runs first.
	Languages []string `yaml:"languages"`

	// Browsers is the number of parallel browser workers.
	Browsers int `yaml:"browsers"`

	// RemoteBrowser is a DevTools WebSocket URL; empty launches Chrome
	// locally. A remote browser forces Browsers to 1.
	RemoteBrowser string `yaml:"remote_browser"`

	// Headful shows the browser window, needed for manual two-factor.
	Headful bool `yaml:"headful"`

	WaitTimeout   time.Duration `yaml:"wait_timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`

	// MismatchCap bounds retained mismatch records per run.
	MismatchCap int `yaml:"mismatch_cap"`

	ReportDir     string `yaml:"report_dir"`
	ScreenshotDir string `yaml:"screenshot_dir"`
	StorePath     string `yaml:"store_path"`

	// Listen is the report server address for serve mode.
	Listen string `yaml:"listen"`
}

// PageConfig names one page and the menu path that reaches it.
type PageConfig struct {
	Name     string   `yaml:"name"`
	MenuPath []string `yaml:"menu_path"`
}

// LoadConfig reads a YAML configuration file, fills defaults, and
// validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checker: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("checker: parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Languages) == 0 {
		c.Languages = []string{"en", "kh", "cn"}
	}
	if c.Browsers <= 0 {
		c.Browsers = 1
	}
	if c.RemoteBrowser != "" {
		c.Browsers = 1
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 15 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.MismatchCap <= 0 {
		c.MismatchCap = 1000
	}
	if c.ReportDir == "" {
		c.ReportDir = "reports"
	}
	if c.ScreenshotDir == "" {
		c.ScreenshotDir = "screenshots"
	}
	if c.StorePath == "" {
		c.StorePath = "transcheck.db"
	}
	if c.Listen == "" {
		c.Listen = ":8099"
	}
}

// Validate checks the config and normalizes the language list so that
// English comes first; it is the correlation baseline.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("checker: base_url is required")
	}
	if c.Catalog == "" {
		return fmt.Errorf("checker: catalog is required")
	}
	if len(c.Pages) == 0 {
		return fmt.Errorf("checker: at least one page is required")
	}
	for i, p := range c.Pages {
		if p.Name == "" {
			return fmt.Errorf("checker: pages[%d]: name is required", i)
		}
	}

	hasEnglish := false
	for _, code := range c.Languages {
		lang, err := catalog.ParseLanguage(code)
		if err != nil {
			return fmt.Errorf("checker: languages: %w", err)
		}
		if lang == catalog.English {
			hasEnglish = true
		}
	}
	if !hasEnglish {
		return fmt.Errorf("checker: languages must include en, it is the baseline")
	}
	return nil
}

// ParsedLanguages returns the configured languages with English moved
// to the front.
func (c *Config) ParsedLanguages() ([]catalog.Language, error) {
	ordered := []catalog.Language{}
	for _, code := range c.Languages {
		lang, err := catalog.ParseLanguage(code)
		if err != nil {
			return nil, fmt.Errorf("checker: languages: %w", err)
		}
		if lang == catalog.English {
			continue
		}
		ordered = append(ordered, lang)
	}
	return append([]catalog.Language{catalog.English}, ordered...), nil
}
