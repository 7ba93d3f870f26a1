package pagescan

import "testing"

func TestTranslationKeyPrecedence(t *testing.T) {
	// WHAT: Explicit key attributes win over class and id conventions,
	// in their declared order.
	cases := []struct {
		name string
		ref  ElementRef
		want string
	}{
		{"data-translation-key first",
			ElementRef{Attrs: map[string]string{"data-translation-key": "a", "data-i18n": "b"}}, "a"},
		{"data-i18n over data-key",
			ElementRef{Attrs: map[string]string{"data-i18n": "b", "data-key": "c"}}, "b"},
		{"attr over class",
			ElementRef{Attrs: map[string]string{"data-key": "c"}, Classes: []string{"i18n-x"}}, "c"},
		{"i18n class prefix",
			ElementRef{Classes: []string{"btn", "i18n-menu.home"}}, "menu.home"},
		{"trans class prefix",
			ElementRef{Classes: []string{"trans-label.amount"}}, "label.amount"},
		{"class over id",
			ElementRef{Classes: []string{"trans-x"}, ID: "trans.y"}, "x"},
		{"trans id prefix",
			ElementRef{ID: "trans.header.title"}, "header.title"},
		{"i18n id prefix",
			ElementRef{ID: "i18n.footer.note"}, "footer.note"},
		{"no key", ElementRef{ID: "submit-btn", Classes: []string{"btn"}}, ""},
		{"bare prefix is not a key", ElementRef{Classes: []string{"i18n-"}}, ""},
	}
	for _, c := range cases {
		if got := c.ref.TranslationKey(); got != c.want {
			t.Errorf("%s: TranslationKey = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestClassSet(t *testing.T) {
	// WHAT: ClassSet is order-independent and empty below two classes.
	a := ElementRef{Classes: []string{"btn", "primary", "large"}}
	b := ElementRef{Classes: []string{"large", "btn", "primary"}}
	if a.ClassSet() == "" || a.ClassSet() != b.ClassSet() {
		t.Errorf("ClassSet order dependence: %q vs %q", a.ClassSet(), b.ClassSet())
	}
	single := ElementRef{Classes: []string{"btn"}}
	if single.ClassSet() != "" {
		t.Error("single class must not form a set")
	}
}
