// Package verify drives the per-page, per-language comparison loop:
// snapshot, correlate, resolve, record. The loop is strictly
// sequential within one browser session; parallelism across browsers
// is the orchestrator's concern.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bictech/transcheck/catalog"
	"github.com/bictech/transcheck/correlate"
	"github.com/bictech/transcheck/pagescan"
)

// Session is the language-switch collaborator. Implementations own
// navigation timeouts and retries.
type Session interface {
	SwitchLanguage(ctx context.Context, lang catalog.Language) error
}

// Scanner takes an element snapshot of the current page rendering.
type Scanner interface {
	Snapshot(ctx context.Context) ([]pagescan.ElementRef, error)
}

type pageState string

const (
	stateIdle       pageState = "idle"
	stateCheckingEN pageState = "checking_english"
	stateCheckingKH pageState = "checking_khmer"
	stateCheckingCN pageState = "checking_chinese"
	statePageFailed pageState = "page_failed"
)

func checkingState(lang catalog.Language) pageState {
	switch lang {
	case catalog.Khmer:
		return stateCheckingKH
	case catalog.Chinese:
		return stateCheckingCN
	}
	return stateCheckingEN
}

// Aggregator runs the verification loop for one browser session and
// accumulates outcomes into one RunStatistics it owns exclusively.
type Aggregator struct {
	resolver *Resolver
	stats    *RunStatistics
	logger   *slog.Logger

	// OnMismatch, when set, is invoked before a failed comparison is
	// recorded, giving the caller a chance to capture evidence and
	// attach the screenshot name.
	OnMismatch func(ctx context.Context, r *ComparisonResult)
}

func NewAggregator(c *catalog.Catalog, stats *RunStatistics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		resolver: NewResolver(c),
		stats:    stats,
		logger:   logger,
	}
}

// Stats returns the aggregator's statistics accumulator.
func (a *Aggregator) Stats() *RunStatistics { return a.stats }

// CheckPage verifies one page across langs. English is always checked
// first as the baseline; the baseline snapshot anchors correlation for
// every other language. Page-level failures degrade into the
// statistics; the only error returned is context cancellation.
func (a *Aggregator) CheckPage(ctx context.Context, page string, sess Session, scan Scanner, langs []catalog.Language) error {
	a.transition(page, stateIdle, stateCheckingEN)

	baseline, err := scan.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.Warn("verify: baseline snapshot failed", "page", page, "err", err)
		a.failPage(page, stateCheckingEN)
		return nil
	}

	// Keys discovered during the English phase, reused for the other
	// languages of the same element.
	keys := make(map[string]string, len(baseline))
	for _, el := range baseline {
		expected, key := a.resolver.Resolve(el.Text, catalog.English, el.TranslationKey())
		if key != "" {
			keys[el.Locator] = key
		}
		a.record(ctx, ComparisonResult{
			Page:     page,
			Locator:  el.Locator,
			Language: catalog.English,
			Actual:   el.Text,
			Expected: expected,
			Key:      key,
			Matched:  expected != nil && catalog.Equivalent(el.Text, *expected),
		})
	}

	state := stateCheckingEN
	for _, lang := range langs {
		if lang == catalog.English {
			continue
		}
		next := checkingState(lang)
		a.transition(page, state, next)
		state = next

		if err := sess.SwitchLanguage(ctx, lang); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("verify: language switch failed",
				"page", page, "language", lang.Name(), "err", err)
			a.recordSwitchFailure(ctx, page, lang, baseline)
			a.failPage(page, state)
			return nil
		}

		snap, err := scan.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("verify: snapshot failed after language switch",
				"page", page, "language", lang.Name(), "err", err)
			a.recordSwitchFailure(ctx, page, lang, baseline)
			a.failPage(page, state)
			return nil
		}

		for _, pair := range correlate.Correlate(baseline, snap, a.logger) {
			if pair.Other == nil {
				a.logger.Info("verify: baseline element has no counterpart",
					"page", page, "language", lang.Name(),
					"locator", pair.Base.Locator, "text", pair.Base.Text)
				a.stats.RecordAnomaly()
				continue
			}

			hint := keys[pair.Base.Locator]
			if hint == "" {
				hint = pair.Other.TranslationKey()
			}
			expected, key := a.resolver.Resolve(pair.Other.Text, lang, hint)
			a.record(ctx, ComparisonResult{
				Page:     page,
				Locator:  pair.Other.Locator,
				Language: lang,
				Actual:   pair.Other.Text,
				Expected: expected,
				Key:      key,
				Matched:  expected != nil && catalog.Equivalent(pair.Other.Text, *expected),
			})
		}
	}

	a.stats.PagesOK++
	a.transition(page, state, stateIdle)
	return nil
}

func (a *Aggregator) record(ctx context.Context, r ComparisonResult) {
	if !r.Matched && a.OnMismatch != nil {
		a.OnMismatch(ctx, &r)
	}
	a.stats.Record(r)
}

// recordSwitchFailure marks every baseline element of the page as a
// mismatch with no expectation for lang. Partial results outrank an
// aborted run.
func (a *Aggregator) recordSwitchFailure(ctx context.Context, page string, lang catalog.Language, baseline []pagescan.ElementRef) {
	for _, el := range baseline {
		a.record(ctx, ComparisonResult{
			Page:     page,
			Locator:  el.Locator,
			Language: lang,
			Actual:   el.Text,
		})
	}
}

func (a *Aggregator) failPage(page string, from pageState) {
	a.stats.RecordPageError(page)
	a.transition(page, from, statePageFailed)
}

func (a *Aggregator) transition(page string, from, to pageState) {
	a.logger.Debug("verify: state transition", "page", page, "from", string(from), "to", string(to))
}

// ScreenshotName builds the deterministic evidence file name for a
// failed comparison: mismatch_<language>_<page>_<element-or-index>.
// The element id is preferred; index is the element's position in the
// snapshot and is used when no id is available.
func ScreenshotName(lang catalog.Language, page, elementID string, index int) string {
	elem := sanitizeToken(elementID)
	if elem == "" {
		elem = fmt.Sprintf("%d", index)
	}
	return fmt.Sprintf("mismatch_%s_%s_%s", lang, sanitizeToken(page), elem)
}

func sanitizeToken(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ', r == '/', r == '.':
			sb.WriteByte('_')
		}
	}
	return strings.Trim(sb.String(), "_")
}
