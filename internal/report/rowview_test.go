package report

import "testing"

func TestRowViewPick(t *testing.T) {
	view := NewRowView(Row{
		"Seller SKU": "SKU-1",
		"asin1":      "B000TEST01",
		"Price":      " 19.99 ",
		"status":     "",
	})

	testCases := []struct {
		name    string
		aliases []string
		want    string
		wantOK  bool
	}{
		{
			name:    "exact header",
			aliases: []string{"asin1"},
			want:    "B000TEST01",
			wantOK:  true,
		},
		{
			name:    "space and case folded",
			aliases: []string{"seller-sku"},
			want:    "SKU-1",
			wantOK:  true,
		},
		{
			name:    "first non-empty alias wins",
			aliases: []string{"sku", "seller_sku"},
			want:    "SKU-1",
			wantOK:  true,
		},
		{
			name:    "empty cell is a miss",
			aliases: []string{"status"},
			want:    "",
			wantOK:  false,
		},
		{
			name:    "absent column",
			aliases: []string{"quantity"},
			want:    "",
			wantOK:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := view.Pick(tc.aliases...)
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("Pick(%v) = (%q, %v), want (%q, %v)", tc.aliases, got, ok, tc.want, tc.wantOK)
			}
		})
	}

	// Values are trimmed on construction
	if price, _ := view.Pick("price"); price != "19.99" {
		t.Errorf("expected trimmed price, got %q", price)
	}
}

func TestRowViewPickAny(t *testing.T) {
	view := NewRowView(Row{
		"afn-fulfillable-quantity": "12",
		"afn-warehouse-quantity":   "15",
	})

	got, ok := view.PickAny("fulfillable")
	if !ok || got != "12" {
		t.Errorf("PickAny(fulfillable) = (%q, %v), want (12, true)", got, ok)
	}

	if _, ok := view.PickAny("sellable"); ok {
		t.Error("expected no match for sellable")
	}
}
