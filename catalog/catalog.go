// Package catalog loads and indexes the reference translation dataset:
// one row per translation key with the draft text per language and the
// BIC-confirmed translations used as acceptance ground truth.
//
// The catalog is built once per run and is immutable afterwards, so it
// can be shared read-only across concurrent browser workers.
package catalog

import (
	"fmt"
	"log/slog"
)

// Language identifies one of the UI languages under test.
type Language string

const (
	English Language = "en"
	Khmer   Language = "kh"
	Chinese Language = "cn"
)

// Name returns the human-readable language name used in reports.
func (l Language) Name() string {
	switch l {
	case English:
		return "English"
	case Khmer:
		return "Khmer"
	case Chinese:
		return "Chinese"
	}
	return string(l)
}

// ParseLanguage converts a config/CLI code into a Language.
func ParseLanguage(code string) (Language, error) {
	switch code {
	case "en", "english":
		return English, nil
	case "kh", "khmer":
		return Khmer, nil
	case "cn", "zh", "chinese":
		return Chinese, nil
	}
	return "", fmt.Errorf("catalog: unknown language code %q", code)
}

// Entry is one row of the reference catalog. All fields are normalized
// at load time: trimmed, internal whitespace collapsed, HTML entities
// decoded, blank cells as empty strings.
type Entry struct {
	Key        string
	OriginalEN string
	OriginalCN string
	OriginalKH string
	// ConfirmedKH and ConfirmedCN are the BIC-reviewed translations.
	// They, not the Original columns, are the acceptance criterion for
	// non-English text. English has no separate confirmation step.
	ConfirmedKH string
	ConfirmedCN string

	// Case-folded lookup forms, derived once at load time.
	enFold string
	khFold string
	cnFold string
}

// Expected returns the text an on-screen element must show in lang.
func (e *Entry) Expected(lang Language) string {
	switch lang {
	case English:
		return e.OriginalEN
	case Khmer:
		return e.ConfirmedKH
	case Chinese:
		return e.ConfirmedCN
	}
	return ""
}

// Catalog is the loaded, queryable reference dataset.
type Catalog struct {
	entries []*Entry
	byKey   map[string]*Entry
	// Folded-text indexes per language column. English indexes the
	// Original EN column; Khmer/Chinese index the confirmed columns.
	byEN map[string]*Entry
	byKH map[string]*Entry
	byCN map[string]*Entry
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns the entries in file order. Callers must not mutate.
func (c *Catalog) Entries() []*Entry { return c.entries }

// ByKey returns the entry with the given key. On duplicate keys in the
// source data the first occurrence wins (duplicates are logged at load).
func (c *Catalog) ByKey(key string) (*Entry, bool) {
	e, ok := c.byKey[key]
	return e, ok
}

// ByText returns the entry whose column for lang matches text,
// case-insensitively and whitespace-normalized. English matches against
// the Original EN column; Khmer and Chinese match against the confirmed
// columns — this asymmetry is deliberate.
func (c *Catalog) ByText(text string, lang Language) (*Entry, bool) {
	folded := Fold(text)
	if folded == "" {
		return nil, false
	}
	var e *Entry
	var ok bool
	switch lang {
	case English:
		e, ok = c.byEN[folded]
	case Khmer:
		e, ok = c.byKH[folded]
	case Chinese:
		e, ok = c.byCN[folded]
	}
	return e, ok
}

// index builds the key and per-language text indexes. First occurrence
// wins everywhere so lookups stay deterministic on imperfect data.
func (c *Catalog) index(logger *slog.Logger) {
	c.byKey = make(map[string]*Entry, len(c.entries))
	c.byEN = make(map[string]*Entry, len(c.entries))
	c.byKH = make(map[string]*Entry, len(c.entries))
	c.byCN = make(map[string]*Entry, len(c.entries))

	emptyConfirmed := 0
	for _, e := range c.entries {
		if prev, dup := c.byKey[e.Key]; dup {
			logger.Warn("catalog: duplicate key, first occurrence wins",
				"key", e.Key, "kept_en", prev.OriginalEN, "dropped_en", e.OriginalEN)
		} else {
			c.byKey[e.Key] = e
		}

		if e.enFold != "" {
			if _, exists := c.byEN[e.enFold]; !exists {
				c.byEN[e.enFold] = e
			}
		}
		if e.khFold != "" {
			if _, exists := c.byKH[e.khFold]; !exists {
				c.byKH[e.khFold] = e
			}
		}
		if e.cnFold != "" {
			if _, exists := c.byCN[e.cnFold]; !exists {
				c.byCN[e.cnFold] = e
			}
		}

		if e.ConfirmedKH == "" || e.ConfirmedCN == "" {
			emptyConfirmed++
			logger.Debug("catalog: entry with empty confirmed translation",
				"key", e.Key, "kh", e.ConfirmedKH != "", "cn", e.ConfirmedCN != "")
		}
	}

	if emptyConfirmed > 0 {
		logger.Warn("catalog: entries with empty confirmed translations",
			"count", emptyConfirmed, "total", len(c.entries))
	}
}
