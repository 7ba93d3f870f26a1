package checker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bictech/transcheck/catalog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcheck.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	// WHAT: A minimal config becomes runnable with defaults filled.
	path := writeConfig(t, `
base_url: https://bank.example.test
catalog: translate.xlsx
pages:
  - name: transfers
    menu_path: [Payments, Transfers]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Browsers != 1 || cfg.MismatchCap != 1000 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.WaitTimeout != 15*time.Second {
		t.Errorf("WaitTimeout = %v", cfg.WaitTimeout)
	}
	if len(cfg.Languages) != 3 {
		t.Errorf("Languages = %v", cfg.Languages)
	}
	if cfg.StorePath == "" || cfg.ReportDir == "" || cfg.ScreenshotDir == "" {
		t.Error("path defaults missing")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	// WHAT: Missing required fields and bad language codes fail load.
	cases := []struct{ name, body string }{
		{"no base_url", "catalog: x.xlsx\npages: [{name: p}]\n"},
		{"no catalog", "base_url: https://x\npages: [{name: p}]\n"},
		{"no pages", "base_url: https://x\ncatalog: x.xlsx\n"},
		{"unnamed page", "base_url: https://x\ncatalog: x.xlsx\npages: [{menu_path: [A]}]\n"},
		{"bad language", "base_url: https://x\ncatalog: x.xlsx\npages: [{name: p}]\nlanguages: [en, xx]\n"},
		{"missing english", "base_url: https://x\ncatalog: x.xlsx\npages: [{name: p}]\nlanguages: [kh, cn]\n"},
	}
	for _, c := range cases {
		if _, err := LoadConfig(writeConfig(t, c.body)); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestParsedLanguagesEnglishFirst(t *testing.T) {
	// WHAT: English is always first; it is the correlation baseline.
	cfg := &Config{Languages: []string{"kh", "en", "cn"}}
	langs, err := cfg.ParsedLanguages()
	if err != nil {
		t.Fatal(err)
	}
	if langs[0] != catalog.English || len(langs) != 3 {
		t.Errorf("langs = %v", langs)
	}
}

func TestRemoteBrowserForcesSingleWorker(t *testing.T) {
	// WHAT: Workers cannot share one remote Chrome.
	cfg := &Config{RemoteBrowser: "ws://chrome:9222", Browsers: 4}
	cfg.applyDefaults()
	if cfg.Browsers != 1 {
		t.Errorf("Browsers = %d, want 1", cfg.Browsers)
	}
}
