// Package checker orchestrates a verification run: configuration,
// catalog loading, browser workers, persistence, and report artifacts.
package checker

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bictech/transcheck/catalog"
	"github.com/bictech/transcheck/pagescan"
	"github.com/bictech/transcheck/report"
	"github.com/bictech/transcheck/session"
	"github.com/bictech/transcheck/store"
	"github.com/bictech/transcheck/verify"
)

// Checker ties a loaded catalog to its run infrastructure.
type Checker struct {
	cfg    *Config
	cat    *catalog.Catalog
	st     *store.Store
	gen    *report.Generator
	logger *slog.Logger
}

// New loads the reference catalog and opens the run store. A catalog
// that fails to load is the one fatal error of the whole system.
func New(cfg *Config, logger *slog.Logger) (*Checker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cat, err := catalog.Load(cfg.Catalog, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("checker: catalog loaded", "path", cfg.Catalog, "entries", cat.Len())

	st, err := store.Open(cfg.StorePath, logger)
	if err != nil {
		return nil, err
	}

	return &Checker{
		cfg:    cfg,
		cat:    cat,
		st:     st,
		gen:    report.NewGenerator(logger),
		logger: logger,
	}, nil
}

func (c *Checker) Catalog() *catalog.Catalog { return c.cat }
func (c *Checker) Store() *store.Store       { return c.st }

func (c *Checker) Close() error { return c.st.Close() }

// Run executes the full verification: one browser worker per
// configured browser, pages split round-robin, each worker owning its
// own statistics. Returns the merged statistics and the run id.
func (c *Checker) Run(ctx context.Context) (*verify.RunStatistics, string, error) {
	langs, err := c.cfg.ParsedLanguages()
	if err != nil {
		return nil, "", err
	}

	runID, err := c.st.StartRun(ctx)
	if err != nil {
		return nil, "", err
	}
	c.logger.Info("checker: run started",
		"run", runID, "pages", len(c.cfg.Pages), "browsers", c.cfg.Browsers)

	workers := c.cfg.Browsers
	if workers > len(c.cfg.Pages) {
		workers = len(c.cfg.Pages)
	}
	shards := make([][]PageConfig, workers)
	for i, p := range c.cfg.Pages {
		shards[i%workers] = append(shards[i%workers], p)
	}

	workerStats := make([]*verify.RunStatistics, workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		stats := verify.NewRunStatistics(c.cfg.MismatchCap)
		workerStats[i] = stats
		shard := shards[i]
		worker := i
		g.Go(func() error {
			return c.runWorker(gctx, runID, worker, shard, langs, stats)
		})
	}
	runErr := g.Wait()

	total := verify.NewRunStatistics(c.cfg.MismatchCap)
	for _, s := range workerStats {
		total.Merge(s)
	}

	if err := c.st.FinishRun(ctx, runID, total); err != nil {
		c.logger.Error("checker: finish run", "run", runID, "err", err)
	}
	c.writeArtifacts(ctx, runID)

	c.logger.Info("checker: run finished", "run", runID,
		"total", total.Total, "anomalies", total.Anomalies,
		"page_errors", len(total.PageErrors), "passed", total.Passed())
	return total, runID, runErr
}

// writeArtifacts renders the report files and the screenshot bundle.
// Artifact failures are logged, never fatal: the statistics already
// exist.
func (c *Checker) writeArtifacts(ctx context.Context, runID string) {
	run, ok, err := c.st.Run(ctx, runID)
	if err != nil || !ok {
		c.logger.Error("checker: read back run for report", "run", runID, "err", err)
		return
	}

	dir := filepath.Join(c.cfg.ReportDir, runID)
	if _, err := c.gen.WriteAll(dir, run); err != nil {
		c.logger.Error("checker: write reports", "run", runID, "err", err)
	}
	bundled, err := report.BundleScreenshots(c.cfg.ScreenshotDir, filepath.Join(dir, "screenshots.pdf"))
	if err != nil {
		c.logger.Error("checker: bundle screenshots", "run", runID, "err", err)
	} else if bundled {
		c.logger.Info("checker: screenshot bundle written", "run", runID)
	}
}

// runWorker drives one browser through its share of the pages. Setup
// failures degrade into page errors; only cancellation aborts the run.
func (c *Checker) runWorker(ctx context.Context, runID string, idx int, pages []PageConfig, langs []catalog.Language, stats *verify.RunStatistics) error {
	if len(pages) == 0 {
		return nil
	}
	logger := c.logger.With("worker", idx)

	sess, cleanup, err := c.openSession(ctx, logger)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("checker: worker setup failed, marking its pages", "err", err)
		for _, p := range pages {
			stats.RecordPageError(p.Name)
		}
		return nil
	}
	defer cleanup()

	agg := verify.NewAggregator(c.cat, stats, logger)
	mismatchSeq := 0
	agg.OnMismatch = func(ctx context.Context, r *verify.ComparisonResult) {
		mismatchSeq++
		name := verify.ScreenshotName(r.Language, r.Page, locatorID(r.Locator), mismatchSeq)
		if path, err := sess.Screenshot(ctx, name); err != nil {
			logger.Warn("checker: screenshot failed", "name", name, "err", err)
		} else {
			r.Screenshot = filepath.Base(path)
		}
		c.st.RecordAsync(runID, *r)
	}

	for _, p := range pages {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := sess.NavigateMenu(ctx, p.MenuPath); err != nil {
			logger.Warn("checker: navigation failed", "page", p.Name, "err", err)
			stats.RecordPageError(p.Name)
			continue
		}
		// The baseline snapshot must be English; the previous page may
		// have left the UI in another language.
		if err := sess.SwitchLanguage(ctx, catalog.English); err != nil {
			logger.Warn("checker: reset to English failed, assuming current",
				"page", p.Name, "err", err)
		}
		if err := agg.CheckPage(ctx, p.Name, sess, sess, langs); err != nil {
			return err
		}
	}
	stats.Transient += sess.TransientSkips()
	return nil
}

func (c *Checker) openSession(ctx context.Context, logger *slog.Logger) (*session.Session, func(), error) {
	mgr := session.NewManager(session.ManagerConfig{
		RemoteURL: c.cfg.RemoteBrowser,
		Headless:  !c.cfg.Headful,
		Stealth:   true,
		Logger:    logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return nil, nil, err
	}
	page, err := mgr.NewPage()
	if err != nil {
		mgr.Close()
		return nil, nil, err
	}

	sess := session.New(page, session.Config{
		BaseURL:       c.cfg.BaseURL,
		Username:      c.cfg.Username,
		Password:      c.cfg.Password,
		TwoFactorWait: c.cfg.TwoFactorWait,
		WaitTimeout:   c.cfg.WaitTimeout,
		ScreenshotDir: c.cfg.ScreenshotDir,
		Retry:         session.Retry{Attempts: c.cfg.RetryAttempts, Delay: c.cfg.RetryDelay},
		Logger:        logger,
	})
	cleanup := func() { mgr.Close() }

	if err := sess.Open(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	if c.cfg.Username != "" {
		if err := sess.Login(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return sess, cleanup, nil
}

// CheckHTML verifies a saved page rendering against the catalog
// without a browser. There is no cross-language correlation; each
// element resolves directly for lang.
func (c *Checker) CheckHTML(data []byte, lang catalog.Language, pageName string) (*verify.RunStatistics, error) {
	refs, err := pagescan.ScanHTML(data)
	if err != nil {
		return nil, err
	}

	stats := verify.NewRunStatistics(c.cfg.MismatchCap)
	resolver := verify.NewResolver(c.cat)
	for _, el := range refs {
		expected, key := resolver.Resolve(el.Text, lang, el.TranslationKey())
		stats.Record(verify.ComparisonResult{
			Page:     pageName,
			Locator:  el.Locator,
			Language: lang,
			Actual:   el.Text,
			Expected: expected,
			Key:      key,
			Matched:  expected != nil && catalog.Equivalent(el.Text, *expected),
		})
	}
	return stats, nil
}

// locatorID recovers the element id from an id-based locator, empty
// for structural paths.
func locatorID(locator string) string {
	rest, ok := strings.CutPrefix(locator, `//*[@id="`)
	if !ok {
		return ""
	}
	id, _, ok := strings.Cut(rest, `"`)
	if !ok {
		return ""
	}
	return id
}

// Verdict maps a run outcome to a process exit code.
func Verdict(stats *verify.RunStatistics) int {
	if stats.Passed() {
		return 0
	}
	return 1
}
