package pagescan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
)

// collectJS gathers text-bearing elements in one page-side pass. It
// mirrors ScanHTML: same tag categories, same visibility rules, same
// locator construction. Element handles never cross the JS boundary;
// only serialized values do, so the result survives re-renders.
const collectJS = `() => {
	const LEAF = new Set(['h1','h2','h3','h4','h5','h6','label','button','a','th','td','li','span','p','div']);
	const ALWAYS = new Set(['h1','h2','h3','h4','h5','h6','label','th']);
	const KEY_ATTRS = ['data-translation-key','data-i18n','data-key','i18n-key'];

	const visible = el => {
		const st = window.getComputedStyle(el);
		if (st.display === 'none' || st.visibility === 'hidden') return false;
		if (parseFloat(st.opacity) === 0 || parseFloat(st.fontSize) === 0) return false;
		return !el.hidden;
	};

	const segment = el => {
		const tag = el.tagName.toLowerCase();
		let idx = 0;
		for (let sib = el.previousElementSibling; sib; sib = sib.previousElementSibling) {
			if (sib.tagName === el.tagName) idx++;
		}
		return idx > 0 ? tag + '[' + (idx + 1) + ']' : tag;
	};

	const locator = el => {
		if (el.id) return '//*[@id="' + el.id + '"]';
		const parts = [];
		for (let cur = el; cur && cur.nodeType === 1; cur = cur.parentElement) {
			parts.unshift(segment(cur));
		}
		return '/' + parts.join('/');
	};

	const out = [];
	let skipped = 0;
	const walk = root => {
		for (const el of root.children) {
			const tag = el.tagName.toLowerCase();
			if (tag === 'script' || tag === 'style' || tag === 'noscript' || tag === 'template') continue;
			try {
				if (!visible(el)) continue;
				if (LEAF.has(tag) && (ALWAYS.has(tag) || el.childElementCount === 0)) {
					const text = (el.innerText || el.textContent || '').replace(/\s+/g, ' ').trim();
					if (text !== '') {
						const attrs = {};
						for (const name of KEY_ATTRS) {
							const v = el.getAttribute(name);
							if (v) attrs[name] = v;
						}
						out.push({
							locator: locator(el),
							tag: tag,
							text: text,
							id: el.id || '',
							classes: el.classList.length ? Array.from(el.classList) : null,
							attrs: Object.keys(attrs).length ? attrs : undefined,
						});
						continue;
					}
				}
			} catch (e) {
				skipped++; // node detached mid-scan, skip it
				continue;
			}
			walk(el);
		}
	};
	walk(document.body || document.documentElement);
	return JSON.stringify({elements: out, skipped: skipped});
}`

// Scan snapshots the translatable elements of a live page. The returned
// refs are values; they remain usable after the page navigates away.
// skipped counts elements that detached mid-scan and were dropped.
func Scan(ctx context.Context, page *rod.Page) (refs []ElementRef, skipped int, err error) {
	obj, err := page.Context(ctx).Eval(collectJS)
	if err != nil {
		return nil, 0, fmt.Errorf("pagescan: collect elements: %w", err)
	}
	var result struct {
		Elements []ElementRef `json:"elements"`
		Skipped  int          `json:"skipped"`
	}
	if err := json.Unmarshal([]byte(obj.Value.Str()), &result); err != nil {
		return nil, 0, fmt.Errorf("pagescan: decode elements: %w", err)
	}
	return result.Elements, result.Skipped, nil
}
