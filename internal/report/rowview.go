package report

import "strings"

// Row is one loosely-typed report row: column name to raw cell value.
// Upstream flat files have shipped several historical header variants per
// logical field, so consumers go through RowView rather than indexing the
// map directly.
type Row map[string]string

// RowView wraps a Row with case-insensitive, separator-insensitive lookup.
// Keys are normalized to lowercase with "-" and " " folded to "_", so
// "seller-sku", "Seller SKU" and "seller_sku" all resolve identically.
type RowView struct {
	normalized map[string]string
}

// NewRowView builds a RowView over a raw row.
// Parameters:
//   - row: raw column-to-value map.
// Returns:
//   - RowView: view with normalized keys.
func NewRowView(row Row) RowView {
	normalized := make(map[string]string, len(row))
	for k, v := range row {
		normalized[normalizeKey(k)] = strings.TrimSpace(v)
	}
	return RowView{normalized: normalized}
}

// Pick returns the first non-empty value among the given column aliases.
// Parameters:
//   - aliases: candidate column names in priority order.
// Returns:
//   - string: matched value, empty if none present.
//   - bool: true when a non-empty value was found.
func (v RowView) Pick(aliases ...string) (string, bool) {
	for _, alias := range aliases {
		if val, ok := v.normalized[normalizeKey(alias)]; ok && val != "" {
			return val, true
		}
	}
	return "", false
}

// PickAny returns the first non-empty value whose normalized column name
// contains any of the given substrings, in priority order. Used for the
// quantity fallback chain where header names drift across report versions.
// Parameters:
//   - patterns: substrings to match against normalized column names.
// Returns:
//   - string: matched value, empty if none present.
//   - bool: true when a non-empty value was found.
func (v RowView) PickAny(patterns ...string) (string, bool) {
	for _, pattern := range patterns {
		p := normalizeKey(pattern)
		for key, val := range v.normalized {
			if val != "" && strings.Contains(key, p) {
				return val, true
			}
		}
	}
	return "", false
}

// Raw returns the normalized key/value map backing the view.
func (v RowView) Raw() map[string]string {
	return v.normalized
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	return key
}
