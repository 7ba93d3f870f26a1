// Command transcheck verifies UI translations of a banking web app
// against a reference spreadsheet.
//
// Usage:
//
//	transcheck -config transcheck.yaml                # full browser run
//	transcheck -config c.yaml -serve                  # report server
//	transcheck -config c.yaml -html page.html -lang kh # offline check of a saved page
//	transcheck -config c.yaml -lookup "Submit"        # catalog probe
//	transcheck -config c.yaml -mcp                    # MCP tools over stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bictech/transcheck/catalog"
	"github.com/bictech/transcheck/checker"
	"github.com/bictech/transcheck/report"
)

func main() {
	configPath := flag.String("config", "", "path to transcheck.yaml config file")
	htmlPath := flag.String("html", "", "check a saved HTML page offline instead of running a browser")
	lang := flag.String("lang", "en", "language of the saved HTML page (en, kh, cn)")
	pageName := flag.String("page", "", "page name for the offline check report")
	lookup := flag.String("lookup", "", "look up a catalog entry by key or English text")
	serve := flag.Bool("serve", false, "serve run history and reports over HTTP")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, logger, *configPath, *htmlPath, *lang, *pageName, *lookup, *serve, *mcpMode)
	if err != nil {
		logger.Error("transcheck: fatal", "error", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(ctx context.Context, logger *slog.Logger, configPath, htmlPath, lang, pageName, lookup string, serve, mcpMode bool) (int, error) {
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: transcheck -config <file> [-serve | -html <file> -lang <code> | -lookup <key-or-text> | -mcp]")
		return 1, nil
	}

	cfg, err := checker.LoadConfig(configPath)
	if err != nil {
		return 1, err
	}
	c, err := checker.New(cfg, logger)
	if err != nil {
		return 1, err
	}
	defer c.Close()

	switch {
	case lookup != "":
		return runLookup(c, lookup)
	case htmlPath != "":
		return runOffline(c, htmlPath, lang, pageName)
	case serve:
		return 1, runServe(ctx, logger, cfg, c)
	case mcpMode:
		return 1, runMCP(ctx, c)
	default:
		return runFull(ctx, logger, c)
	}
}

func runFull(ctx context.Context, logger *slog.Logger, c *checker.Checker) (int, error) {
	stats, runID, err := c.Run(ctx)
	if err != nil {
		return 1, err
	}
	logger.Info("transcheck: verdict",
		"run", runID, "passed", stats.Passed(),
		"total", stats.Total, "mismatches", len(stats.Mismatches))
	return checker.Verdict(stats), nil
}

func runOffline(c *checker.Checker, path, langCode, pageName string) (int, error) {
	lang, err := catalog.ParseLanguage(langCode)
	if err != nil {
		return 1, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 1, fmt.Errorf("read page: %w", err)
	}
	if pageName == "" {
		pageName = filepath.Base(path)
	}

	stats, err := c.CheckHTML(data, lang, pageName)
	if err != nil {
		return 1, err
	}
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return 1, err
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
	return checker.Verdict(stats), nil
}

func runLookup(c *checker.Checker, query string) (int, error) {
	entry, ok := c.Catalog().ByKey(query)
	if !ok {
		entry, ok = c.Catalog().ByText(query, catalog.English)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "no catalog entry for %q\n", query)
		return 1, nil
	}
	out, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return 1, err
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
	return 0, nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *checker.Config, c *checker.Checker) error {
	srv := report.NewServer(c.Store(), report.NewGenerator(logger), cfg.ScreenshotDir, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("transcheck: report server listening", "addr", cfg.Listen)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func runMCP(ctx context.Context, c *checker.Checker) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "transcheck", Version: "1.0.0"}, nil)
	c.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}
