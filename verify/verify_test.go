package verify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/bictech/transcheck/catalog"
	"github.com/bictech/transcheck/pagescan"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ref.csv")
	data := "Key,Original EN,Original CN,Original KH,KH Confirm from BIC,CN Confirm from BIC\n" +
		"k1,Submit,提交草稿,ស្នើ,ស្នើសុំ,提交\n" +
		"k2,Dashboard,仪表盘,ផ្ទាំង,ផ្ទាំងគ្រប់គ្រង,仪表板\n" +
		"k3,Cancel,取消,បោះបង់,បោះបង់,取消\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := catalog.Load(path, slog.Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

type fakeSession struct {
	lang      catalog.Language
	failLangs map[catalog.Language]bool
	switches  []catalog.Language
}

func (s *fakeSession) SwitchLanguage(_ context.Context, lang catalog.Language) error {
	if s.failLangs[lang] {
		return errors.New("dropdown never appeared")
	}
	s.lang = lang
	s.switches = append(s.switches, lang)
	return nil
}

// fakeScanner serves the snapshot for whatever language the session
// last switched to.
type fakeScanner struct {
	sess  *fakeSession
	pages map[catalog.Language][]pagescan.ElementRef
}

func (s *fakeScanner) Snapshot(context.Context) ([]pagescan.ElementRef, error) {
	return s.pages[s.sess.lang], nil
}

func ref(id, locator, text string) pagescan.ElementRef {
	return pagescan.ElementRef{ID: id, Locator: locator, Text: text}
}

var allLangs = []catalog.Language{catalog.English, catalog.Khmer, catalog.Chinese}

func TestCheckPageAllMatched(t *testing.T) {
	// WHAT: The happy path across three languages. English resolves
	// the key, the other languages reuse it against the confirmed
	// columns, everything matches.
	sess := &fakeSession{lang: catalog.English}
	scan := &fakeScanner{sess: sess, pages: map[catalog.Language][]pagescan.ElementRef{
		catalog.English: {ref("submit-btn", `//*[@id="submit-btn"]`, "Submit")},
		catalog.Khmer:   {ref("submit-btn", `//*[@id="submit-btn"]`, "ស្នើសុំ")},
		catalog.Chinese: {ref("submit-btn", `//*[@id="submit-btn"]`, "提交")},
	}}

	stats := NewRunStatistics(0)
	agg := NewAggregator(testCatalog(t), stats, slog.Default())
	if err := agg.CheckPage(context.Background(), "transfers", sess, scan, allLangs); err != nil {
		t.Fatalf("CheckPage: %v", err)
	}

	if !stats.Passed() {
		t.Fatalf("run should pass, mismatches: %+v", stats.Mismatches)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	for _, lang := range allLangs {
		c := stats.ByLanguage[lang]
		if c == nil || c.Matched != 1 || c.Mismatched != 0 {
			t.Errorf("%s counts = %+v", lang.Name(), c)
		}
	}
	if stats.PagesOK != 1 {
		t.Errorf("PagesOK = %d", stats.PagesOK)
	}
}

func TestCheckPageTruncatedTranslation(t *testing.T) {
	// WHAT: A truncated Khmer rendering is recorded as a mismatch
	// carrying the confirmed expectation, resolved via the key
	// remembered from the English phase.
	sess := &fakeSession{lang: catalog.English}
	scan := &fakeScanner{sess: sess, pages: map[catalog.Language][]pagescan.ElementRef{
		catalog.English: {ref("submit-btn", `//*[@id="submit-btn"]`, "Submit")},
		catalog.Khmer:   {ref("submit-btn", `//*[@id="submit-btn"]`, "ស្នើ")},
	}}

	stats := NewRunStatistics(0)
	agg := NewAggregator(testCatalog(t), stats, slog.Default())
	langs := []catalog.Language{catalog.English, catalog.Khmer}
	if err := agg.CheckPage(context.Background(), "transfers", sess, scan, langs); err != nil {
		t.Fatal(err)
	}

	if stats.Passed() {
		t.Fatal("truncated translation must fail the run")
	}
	if len(stats.Mismatches) != 1 {
		t.Fatalf("mismatches = %+v", stats.Mismatches)
	}
	m := stats.Mismatches[0]
	if m.Language != catalog.Khmer || m.Actual != "ស្នើ" {
		t.Errorf("mismatch = %+v", m)
	}
	if m.Expected == nil || *m.Expected != "ស្នើសុំ" {
		t.Errorf("expected = %v, want ស្នើសុំ", m.Expected)
	}
	if m.Key != "k1" {
		t.Errorf("key = %q, want k1", m.Key)
	}
}

func TestCheckPageLanguageSwitchFailure(t *testing.T) {
	// WHAT: A failed switch records every baseline element as an
	// expectation-less mismatch and fails the page, not the run.
	sess := &fakeSession{lang: catalog.English, failLangs: map[catalog.Language]bool{catalog.Khmer: true}}
	scan := &fakeScanner{sess: sess, pages: map[catalog.Language][]pagescan.ElementRef{
		catalog.English: {
			ref("a", `//*[@id="a"]`, "Submit"),
			ref("b", `//*[@id="b"]`, "Cancel"),
		},
	}}

	stats := NewRunStatistics(0)
	agg := NewAggregator(testCatalog(t), stats, slog.Default())
	err := agg.CheckPage(context.Background(), "loans", sess, scan, allLangs)
	if err != nil {
		t.Fatal(err)
	}

	kh := stats.ByLanguage[catalog.Khmer]
	if kh == nil || kh.Mismatched != 2 || kh.Matched != 0 {
		t.Fatalf("khmer counts = %+v", kh)
	}
	for _, m := range stats.Mismatches {
		if m.Language == catalog.Khmer && m.Expected != nil {
			t.Errorf("switch failure should record nil expectation: %+v", m)
		}
	}
	if len(stats.PageErrors) != 1 || stats.PageErrors[0] != "loans" {
		t.Errorf("PageErrors = %v", stats.PageErrors)
	}
	if len(sess.switches) != 0 {
		// Khmer failed; Chinese must not have been attempted.
		t.Errorf("switches after failure = %v", sess.switches)
	}
}

func TestCheckPageAnomalyExcludedFromCounters(t *testing.T) {
	// WHAT: A baseline element with no counterpart is an anomaly, not
	// a mismatch; per-language counters only see paired elements.
	sess := &fakeSession{lang: catalog.English}
	scan := &fakeScanner{sess: sess, pages: map[catalog.Language][]pagescan.ElementRef{
		catalog.English: {
			{Locator: "/html/body/p", Text: "Submit"},
			{Locator: "/html/body/p[2]", Text: "Dashboard"},
		},
		catalog.Khmer: {
			{Locator: "/html/body/p", Text: "ស្នើសុំ"},
		},
	}}

	stats := NewRunStatistics(0)
	agg := NewAggregator(testCatalog(t), stats, slog.Default())
	langs := []catalog.Language{catalog.English, catalog.Khmer}
	if err := agg.CheckPage(context.Background(), "home", sess, scan, langs); err != nil {
		t.Fatal(err)
	}

	if stats.Anomalies != 1 {
		t.Errorf("Anomalies = %d, want 1", stats.Anomalies)
	}
	kh := stats.ByLanguage[catalog.Khmer]
	if kh == nil || kh.Total() != 1 || kh.Matched != 1 {
		t.Errorf("khmer counts = %+v", kh)
	}
}

func TestAggregationArithmetic(t *testing.T) {
	// WHAT: matched + mismatched equals comparisons performed, per
	// language, whatever mix of outcomes a page produces.
	sess := &fakeSession{lang: catalog.English}
	scan := &fakeScanner{sess: sess, pages: map[catalog.Language][]pagescan.ElementRef{
		catalog.English: {
			ref("a", "", "Submit"),
			ref("b", "", "Dashboard"),
			ref("c", "", "Unknown Widget"),
		},
		catalog.Khmer: {
			ref("a", "", "ស្នើសុំ"),
			ref("b", "", "ផ្ទាំង"),
			ref("c", "", "អ្វីមួយ"),
		},
	}}

	stats := NewRunStatistics(0)
	agg := NewAggregator(testCatalog(t), stats, slog.Default())
	langs := []catalog.Language{catalog.English, catalog.Khmer}
	if err := agg.CheckPage(context.Background(), "home", sess, scan, langs); err != nil {
		t.Fatal(err)
	}

	perLang := map[catalog.Language]int{}
	for _, lang := range langs {
		c := stats.ByLanguage[lang]
		if c == nil {
			t.Fatalf("no counts for %s", lang.Name())
		}
		if c.Matched+c.Mismatched != c.Total() {
			t.Errorf("%s: %d + %d != %d", lang.Name(), c.Matched, c.Mismatched, c.Total())
		}
		perLang[lang] = c.Total()
	}
	if perLang[catalog.English] != 3 || perLang[catalog.Khmer] != 3 {
		t.Errorf("totals = %v", perLang)
	}
	if stats.Total != 6 {
		t.Errorf("Total = %d, want 6", stats.Total)
	}
}

func TestScreenshotName(t *testing.T) {
	// WHAT: Deterministic, filesystem-safe evidence names.
	got := ScreenshotName(catalog.Khmer, "Account Overview", "submit-btn", 4)
	if got != "mismatch_kh_Account_Overview_submit-btn" {
		t.Errorf("name = %q", got)
	}
	got = ScreenshotName(catalog.Chinese, "loans", "", 7)
	if got != "mismatch_cn_loans_7" {
		t.Errorf("name = %q", got)
	}
}
