// Package pagescan collects the translatable text elements of a rendered
// page into immutable value snapshots.
//
// A snapshot is taken once per language rendering. Element references
// are plain values — locator, text, attributes — captured at one point
// in time; they stay valid after the page re-renders, unlike live
// browser handles. Two scanners share the same selection rules: a live
// one evaluating JS in a Rod page, and a static one walking raw HTML,
// used for offline checks and tests.
package pagescan

import (
	"sort"
	"strings"
)

// ElementRef is a handle to one text-bearing node, captured at scan time.
type ElementRef struct {
	// Locator is a reproducible path to the node: an id-based locator
	// when the element has an id, otherwise a tag+sibling-position path.
	Locator string `json:"locator"`
	Tag     string `json:"tag"`
	// Text is the trimmed, whitespace-collapsed visible text.
	Text    string            `json:"text"`
	ID      string            `json:"id"`
	Classes []string          `json:"classes"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// ClassSet returns the canonical (sorted, space-joined) form of the
// element's class list, or "" when fewer than two classes are present.
// Single classes are too common to serve as a correlation signal.
func (r *ElementRef) ClassSet() string {
	if len(r.Classes) < 2 {
		return ""
	}
	set := make([]string, len(r.Classes))
	copy(set, r.Classes)
	sort.Strings(set)
	return strings.Join(set, " ")
}

// leafTags lists the structural categories scanned for translatable
// text. Heading, label, and header-cell elements are collected even
// with child elements (their text is the concatenation); the rest only
// when they have no element children.
var leafTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"label": true, "button": true, "a": true, "th": true, "td": true,
	"li": true, "span": true, "p": true, "div": true,
}

// alwaysCollect are tags collected regardless of element children.
var alwaysCollect = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"label": true, "th": true,
}
