// Package report renders a finished run into artifacts: HTML for
// humans, JSON for CI, Markdown for chat posting, and a PDF bundling
// the evidence screenshots. It reads RunStatistics-shaped data and
// never mutates it.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/bictech/transcheck/store"
)

// Generator renders run artifacts. Safe for reuse across runs.
type Generator struct {
	logger   *slog.Logger
	sanitize *bluemonday.Policy
	md       *converter.Converter
	tmpl     *template.Template
}

func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		logger:   logger,
		sanitize: bluemonday.StrictPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
	g.tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
		"clean":    g.clean,
		"expected": g.expectedText,
	}).Parse(reportTemplate))
	return g
}

// expectedText renders an expectation cell. nil means no reference
// entry existed; an empty string means the reference row has a blank
// confirmed translation.
func (g *Generator) expectedText(p *string) string {
	if p == nil {
		return "(no reference entry)"
	}
	if *p == "" {
		return "(blank in reference)"
	}
	return g.clean(*p)
}

// clean strips any markup scraped text may carry before it is
// template-escaped, so a broken page cannot inject into the report.
func (g *Generator) clean(s string) string {
	return strings.TrimSpace(g.sanitize.Sanitize(s))
}

// HTML renders the human-facing report.
func (g *Generator) HTML(run *store.RunDetail) ([]byte, error) {
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, run); err != nil {
		return nil, fmt.Errorf("report: render html: %w", err)
	}
	return buf.Bytes(), nil
}

// JSON renders the machine-facing artifact.
func (g *Generator) JSON(run *store.RunDetail) ([]byte, error) {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: render json: %w", err)
	}
	return data, nil
}

// Markdown converts the HTML report for posting into chat or a PR.
func (g *Generator) Markdown(run *store.RunDetail) ([]byte, error) {
	htmlDoc, err := g.HTML(run)
	if err != nil {
		return nil, err
	}
	md, err := g.md.ConvertString(string(htmlDoc))
	if err != nil {
		return nil, fmt.Errorf("report: render markdown: %w", err)
	}
	return []byte(strings.TrimSpace(md) + "\n"), nil
}

// WriteAll writes report.html, report.json, and report.md for the run
// under dir and returns the written paths.
func (g *Generator) WriteAll(dir string, run *store.RunDetail) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: mkdir: %w", err)
	}

	artifacts := []struct {
		name   string
		render func(*store.RunDetail) ([]byte, error)
	}{
		{"report.html", g.HTML},
		{"report.json", g.JSON},
		{"report.md", g.Markdown},
	}

	var paths []string
	for _, a := range artifacts {
		data, err := a.render(run)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, a.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("report: write %s: %w", a.name, err)
		}
		paths = append(paths, path)
	}
	g.logger.Info("report: artifacts written", "run", run.ID, "dir", dir, "count", len(paths))
	return paths, nil
}

// BundleScreenshots merges the run's PNG evidence into one PDF so the
// whole failure set travels as a single attachment. Returns false when
// there are no screenshots to bundle.
func BundleScreenshots(screenshotDir, outPath string) (bool, error) {
	entries, err := os.ReadDir(screenshotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("report: read screenshot dir: %w", err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			images = append(images, filepath.Join(screenshotDir, e.Name()))
		}
	}
	if len(images) == 0 {
		return false, nil
	}
	sort.Strings(images)

	if err := api.ImportImagesFile(images, outPath, nil, nil); err != nil {
		return false, fmt.Errorf("report: bundle screenshots: %w", err)
	}
	return true, nil
}
