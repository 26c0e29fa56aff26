package report

import "testing"

func TestParseDocumentFlatFile(t *testing.T) {
	doc := []byte("seller-sku\tasin1\tquantity\nSKU-1\tB000TEST01\t5\nSKU-2\tB000TEST02\t0\n")

	rows, err := ParseDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["seller-sku"] != "SKU-1" || rows[0]["quantity"] != "5" {
		t.Errorf("unexpected first row: %v", rows[0])
	}
}

func TestParseDocumentShortLines(t *testing.T) {
	// Older report versions drop trailing empty cells
	doc := []byte("seller-sku\tasin1\tprice\nSKU-1\tB000TEST01\n")

	rows, err := ParseDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if _, ok := rows[0]["price"]; ok {
		t.Error("missing trailing cell should be absent, not empty")
	}
}

func TestParseDocumentJSONArray(t *testing.T) {
	doc := []byte(`[{"sellerSku":"SKU-1","quantity":5,"active":true},{"sellerSku":"SKU-2","quantity":0}]`)

	rows, err := ParseDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["quantity"] != "5" {
		t.Errorf("integral float should stringify without exponent, got %q", rows[0]["quantity"])
	}
	if rows[0]["active"] != "true" {
		t.Errorf("bool should stringify, got %q", rows[0]["active"])
	}
}

func TestParseDocumentJSONEnvelope(t *testing.T) {
	doc := []byte(`{"reportSpecification":{"reportType":"X"},"rows":[{"sellerSku":"SKU-1"}]}`)

	rows, err := ParseDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["sellerSku"] != "SKU-1" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestParseDocumentEmpty(t *testing.T) {
	rows, err := ParseDocument([]byte("  \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}

	// Header-only flat file has no data rows
	rows, err = ParseDocument([]byte("seller-sku\tasin1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows for header-only file, got %d", len(rows))
	}
}

func TestParseDocumentMalformedJSON(t *testing.T) {
	if _, err := ParseDocument([]byte(`{"rows": [{`)); err == nil {
		t.Error("expected parse error for truncated JSON")
	}
}
