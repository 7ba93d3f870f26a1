package catalog

import "testing"

func TestNormalize(t *testing.T) {
	// WHAT: Trimming, whitespace collapsing, and entity decoding.
	cases := []struct{ in, want string }{
		{"  Pay &amp; Transfer  ", "Pay & Transfer"},
		{"Account\n\tList", "Account List"},
		{"a  b   c", "a b c"},
		{"", ""},
		{"   ", ""},
		{"ខ្មែរ", "ខ្មែរ"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFold(t *testing.T) {
	// WHAT: Fold is a stable case-insensitive key.
	// WHY: Equality across snapshots relies on Fold(a)==Fold(b).
	if Fold("Dashboard") != Fold("DASHBOARD") {
		t.Error("ASCII casings should fold equal")
	}
	if Fold("Straße") != Fold("STRASSE") {
		t.Error("full Unicode case folding expected, not ToLower")
	}
	if Fold("中文") != Fold("中文") {
		t.Error("caseless scripts must be stable")
	}
}

func TestEquivalent(t *testing.T) {
	// WHAT: Comparison semantics are exact after normalization; no
	// fuzzy matching.
	if !Equivalent(" Submit ", "submit") {
		t.Error("trim+fold equality expected")
	}
	if Equivalent("ស្នើសុំ", "ស្នើ") {
		t.Error("truncated text must not compare equal")
	}
}
