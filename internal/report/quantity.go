package report

import (
	"strconv"
	"strings"
)

// Column name patterns tried in priority order when the primary quantity
// column is absent or zero. Order matters: "fulfillable" is the most
// specific signal, bare "balance" the least.
var quantityFallbackPatterns = []string{
	"fulfillable",
	"available",
	"sellable",
	"quantity",
	"balance",
}

// ParseQuantity parses an inventory quantity cell. Handles accounting
// notation for negatives ("(120)" is -120) and thousands separators.
// Parameters:
//   - raw: raw cell value.
// Returns:
//   - int: parsed quantity.
//   - bool: true when the cell held a parseable number.
func ParseQuantity(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// Some report versions emit quantities as decimals ("12.0")
	if idx := strings.IndexByte(s, '.'); idx != -1 {
		if allZeroFraction(s[idx+1:]) {
			s = s[:idx]
		} else {
			return 0, false
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if negative {
		n = -n
	}
	return n, true
}

// PickQuantity resolves a row's quantity through the fallback column chain.
// The primary aliases are tried first; if they are absent or parse to zero,
// each fallback pattern is tried in turn and the first non-zero value wins.
// A parseable zero with no better fallback is still returned as a valid zero.
// Parameters:
//   - view: row view to read from.
//   - primaryAliases: exact column aliases tried before the pattern chain.
// Returns:
//   - int: resolved quantity.
//   - bool: true when any column held a parseable number.
func PickQuantity(view RowView, primaryAliases ...string) (int, bool) {
	best := 0
	found := false

	if raw, ok := view.Pick(primaryAliases...); ok {
		if n, ok := ParseQuantity(raw); ok {
			if n != 0 {
				return n, true
			}
			best = n
			found = true
		}
	}

	for _, pattern := range quantityFallbackPatterns {
		raw, ok := view.PickAny(pattern)
		if !ok {
			continue
		}
		n, ok := ParseQuantity(raw)
		if !ok {
			continue
		}
		if n != 0 {
			return n, true
		}
		found = true
	}

	return best, found
}

func allZeroFraction(s string) bool {
	for _, r := range s {
		if r != '0' {
			return false
		}
	}
	return true
}
