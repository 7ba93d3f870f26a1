package verify

import (
	"github.com/bictech/transcheck/catalog"
)

// Resolver answers "what text should this element show in this
// language". It is stateless; key memory across languages of the same
// element belongs to the aggregator.
type Resolver struct {
	catalog *catalog.Catalog
}

func NewResolver(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Resolve returns the expected text for lang and the key of the row
// that produced it. A nil expected means no reference entry was found.
//
// Precedence: an explicit key hint is authoritative when it names a
// catalog row. Failing that, the element's text is matched against the
// English column regardless of target language, since English is the
// join key across languages. As a last resort the text is matched
// directly against the target language's confirmed column, which
// catches elements first seen after the English phase.
func (r *Resolver) Resolve(text string, lang catalog.Language, keyHint string) (expected *string, key string) {
	if keyHint != "" {
		if e, ok := r.catalog.ByKey(keyHint); ok {
			v := e.Expected(lang)
			return &v, e.Key
		}
	}

	if e, ok := r.catalog.ByText(text, catalog.English); ok {
		v := e.Expected(lang)
		return &v, e.Key
	}

	if lang != catalog.English {
		if e, ok := r.catalog.ByText(text, lang); ok {
			v := e.Expected(lang)
			return &v, e.Key
		}
	}

	return nil, ""
}
