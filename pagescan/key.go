package pagescan

import "strings"

// keyAttrs are attribute names that carry an explicit translation key,
// in precedence order.
var keyAttrs = []string{
	"data-translation-key",
	"data-i18n",
	"data-key",
	"i18n-key",
}

// TranslationKey extracts the element's translation key, best effort.
// Precedence: explicit key attributes, then the i18n-/trans- class
// convention, then the trans./i18n. id convention. Absence is normal —
// most elements carry no key.
func (r *ElementRef) TranslationKey() string {
	for _, attr := range keyAttrs {
		if v := r.Attrs[attr]; v != "" {
			return v
		}
	}

	for _, cls := range r.Classes {
		if key, ok := strings.CutPrefix(cls, "i18n-"); ok && key != "" {
			return key
		}
		if key, ok := strings.CutPrefix(cls, "trans-"); ok && key != "" {
			return key
		}
	}

	if key, ok := strings.CutPrefix(r.ID, "trans."); ok && key != "" {
		return key
	}
	if key, ok := strings.CutPrefix(r.ID, "i18n."); ok && key != "" {
		return key
	}

	return ""
}
