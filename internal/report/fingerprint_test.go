package report

import (
	"testing"
	"time"
)

func TestScopeFingerprintOrderInsensitive(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	a := ScopeFingerprint([]string{"ATVPDKIKX0DER", "A1F83G8C2ARO7P"}, &start, &end, map[string]string{"custom": "true"})
	b := ScopeFingerprint([]string{"A1F83G8C2ARO7P", "ATVPDKIKX0DER"}, &start, &end, map[string]string{"custom": "true"})

	if a != b {
		t.Errorf("marketplace order changed fingerprint: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got length %d", len(a))
	}
}

func TestScopeFingerprintDistinguishesScope(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	base := ScopeFingerprint([]string{"ATVPDKIKX0DER"}, &start, nil, nil)

	if got := ScopeFingerprint([]string{"A1F83G8C2ARO7P"}, &start, nil, nil); got == base {
		t.Error("different marketplaces should produce different fingerprints")
	}
	if got := ScopeFingerprint([]string{"ATVPDKIKX0DER"}, nil, nil, nil); got == base {
		t.Error("dropping the window should produce a different fingerprint")
	}
	if got := ScopeFingerprint([]string{"ATVPDKIKX0DER"}, &start, nil, map[string]string{"custom": "true"}); got == base {
		t.Error("options should produce a different fingerprint")
	}
}

func TestURLFingerprintIgnoresQuery(t *testing.T) {
	a := URLFingerprint("https://reports.example.com/doc/abc.gz?X-Amz-Signature=one&X-Amz-Expires=60")
	b := URLFingerprint("https://reports.example.com/doc/abc.gz?X-Amz-Signature=two&X-Amz-Expires=300")
	c := URLFingerprint("https://reports.example.com/doc/def.gz?X-Amz-Signature=one")

	if a != b {
		t.Error("rotating query parameters should not change the fingerprint")
	}
	if a == c {
		t.Error("different document paths should produce different fingerprints")
	}
}

func TestContentHashStable(t *testing.T) {
	a := ContentHash("ATVPDKIKX0DER", "SKU-1", "FBAPerUnitFulfillmentFee", "-3.22", "USD")
	b := ContentHash("ATVPDKIKX0DER", "SKU-1", "FBAPerUnitFulfillmentFee", "-3.22", "USD")
	c := ContentHash("ATVPDKIKX0DER", "SKU-1", "FBAPerUnitFulfillmentFee", "-3.23", "USD")

	if a != b {
		t.Error("same fields should hash identically")
	}
	if a == c {
		t.Error("changed amount should change the hash")
	}
}
