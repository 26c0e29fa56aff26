package report

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// ScopeFingerprint builds the canonical fingerprint for a report request
// scope: sorted marketplace set, date range, and sorted report options.
// Two queue calls describing the same request always produce the same
// fingerprint regardless of argument order, which is what the dedup
// invariant on report jobs keys on.
// Parameters:
//   - marketplaceIDs: requested marketplaces; empty means account-wide.
//   - start, end: data window bounds; nil when the report type has none.
//   - options: upstream report options.
// Returns:
//   - string: hex-encoded sha256 fingerprint.
func ScopeFingerprint(marketplaceIDs []string, start, end *time.Time, options map[string]string) string {
	var b strings.Builder

	sorted := make([]string, len(marketplaceIDs))
	copy(sorted, marketplaceIDs)
	sort.Strings(sorted)
	b.WriteString("marketplaces=")
	b.WriteString(strings.Join(sorted, ","))

	b.WriteString(";start=")
	if start != nil {
		b.WriteString(start.UTC().Format(time.RFC3339))
	}
	b.WriteString(";end=")
	if end != nil {
		b.WriteString(end.UTC().Format(time.RFC3339))
	}

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(";opt:")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(options[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// URLFingerprint hashes a report document URL, ignoring everything after
// "?" so that rotating pre-signed query parameters do not defeat the
// duplicate-document guard.
// Parameters:
//   - url: document URL as returned by the upstream document endpoint.
// Returns:
//   - string: hex-encoded sha256 of the stable URL prefix.
func URLFingerprint(url string) string {
	if idx := strings.IndexByte(url, '?'); idx != -1 {
		url = url[:idx]
	}
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// ContentHash hashes the canonical form of a normalized record, used by
// fee ingestion to dedup lines across overlapping sync windows.
// Parameters:
//   - parts: ordered fields that identify the line.
// Returns:
//   - string: hex-encoded sha256 of the joined fields.
func ContentHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
