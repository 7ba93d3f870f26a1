package verify

import (
	"github.com/bictech/transcheck/catalog"
)

// ComparisonResult is one (element, language) check outcome.
type ComparisonResult struct {
	Page     string           `json:"page"`
	Locator  string           `json:"locator"`
	Language catalog.Language `json:"language"`
	Actual   string           `json:"actual"`
	// Expected is nil when no reference entry was found. An empty
	// non-nil value means the catalog row exists but its confirmed
	// translation is blank; comparing against it is still a mismatch.
	Expected *string `json:"expected"`
	Matched  bool    `json:"matched"`
	// Key is the catalog key that resolved the expectation, if any.
	Key string `json:"key,omitempty"`
	// Screenshot is the evidence file name, set by the caller after
	// capture.
	Screenshot string `json:"screenshot,omitempty"`
}

// LanguageCounts aggregates outcomes for one language.
type LanguageCounts struct {
	Matched    int `json:"matched"`
	Mismatched int `json:"mismatched"`
}

// Total returns all comparisons performed for the language.
func (c LanguageCounts) Total() int { return c.Matched + c.Mismatched }

// RunStatistics accumulates one run's outcomes. One instance per
// worker; never shared between concurrent workers.
type RunStatistics struct {
	// MismatchCap bounds the retained mismatch list. Zero means the
	// default cap; counters are never capped.
	MismatchCap int `json:"-"`

	Total       int                                  `json:"total"`
	ByLanguage  map[catalog.Language]*LanguageCounts `json:"by_language"`
	Mismatches  []ComparisonResult                   `json:"mismatches"`
	Dropped     int                                  `json:"dropped_mismatches"`
	Anomalies   int                                  `json:"anomalies"`
	PagesOK     int                                  `json:"pages_ok"`
	PageErrors  []string                             `json:"page_errors,omitempty"`
	Transient   int                                  `json:"transient_skips"`
}

// DefaultMismatchCap bounds retained mismatch records when the run
// configuration does not say otherwise.
const DefaultMismatchCap = 1000

func NewRunStatistics(limit int) *RunStatistics {
	if limit <= 0 {
		limit = DefaultMismatchCap
	}
	return &RunStatistics{
		MismatchCap: limit,
		ByLanguage:  map[catalog.Language]*LanguageCounts{},
	}
}

// Record counts one comparison and retains it when it is a mismatch or
// an unresolved reference. Counters always move; the retained list is
// bounded by MismatchCap.
func (s *RunStatistics) Record(r ComparisonResult) {
	s.Total++
	counts := s.ByLanguage[r.Language]
	if counts == nil {
		counts = &LanguageCounts{}
		s.ByLanguage[r.Language] = counts
	}
	if r.Matched {
		counts.Matched++
		return
	}
	counts.Mismatched++
	if len(s.Mismatches) >= s.MismatchCap {
		s.Dropped++
		return
	}
	s.Mismatches = append(s.Mismatches, r)
}

// RecordAnomaly counts a baseline element with no counterpart after a
// language switch. Anomalies stay out of per-language counters.
func (s *RunStatistics) RecordAnomaly() { s.Anomalies++ }

// RecordPageError notes a page that failed navigation or language
// switching.
func (s *RunStatistics) RecordPageError(page string) {
	s.PageErrors = append(s.PageErrors, page)
}

// Passed reports the run verdict: no mismatches, no unresolved
// references, no page-level failures.
func (s *RunStatistics) Passed() bool {
	for _, c := range s.ByLanguage {
		if c.Mismatched > 0 {
			return false
		}
	}
	return len(s.PageErrors) == 0
}

// Merge folds another worker's statistics into s after that worker has
// finished. Used only by the orchestrator, never concurrently.
func (s *RunStatistics) Merge(o *RunStatistics) {
	s.Total += o.Total
	for lang, c := range o.ByLanguage {
		mine := s.ByLanguage[lang]
		if mine == nil {
			mine = &LanguageCounts{}
			s.ByLanguage[lang] = mine
		}
		mine.Matched += c.Matched
		mine.Mismatched += c.Mismatched
	}
	for _, m := range o.Mismatches {
		if len(s.Mismatches) >= s.MismatchCap {
			s.Dropped++
			continue
		}
		s.Mismatches = append(s.Mismatches, m)
	}
	s.Dropped += o.Dropped
	s.Anomalies += o.Anomalies
	s.PagesOK += o.PagesOK
	s.PageErrors = append(s.PageErrors, o.PageErrors...)
	s.Transient += o.Transient
}
