package report

import "testing"

func TestParseQuantity(t *testing.T) {
	testCases := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"120", 120, true},
		{"(120)", -120, true},
		{"1,234", 1234, true},
		{"(1,234)", -1234, true},
		{"12.0", 12, true},
		{"0", 0, true},
		{" 7 ", 7, true},
		{"", 0, false},
		{"()", 0, false},
		{"n/a", 0, false},
		{"12.5", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := ParseQuantity(tc.raw)
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("ParseQuantity(%q) = (%d, %v), want (%d, %v)", tc.raw, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestPickQuantityFallbackChain(t *testing.T) {
	testCases := []struct {
		name   string
		row    Row
		want   int
		wantOK bool
	}{
		{
			name:   "primary column wins",
			row:    Row{"quantity": "5", "afn-fulfillable-quantity": "9"},
			want:   5,
			wantOK: true,
		},
		{
			name:   "falls through zero primary to fulfillable",
			row:    Row{"quantity": "0", "afn-fulfillable-quantity": "9"},
			want:   9,
			wantOK: true,
		},
		{
			name:   "available pattern when primary absent",
			row:    Row{"available": "50"},
			want:   50,
			wantOK: true,
		},
		{
			name:   "fulfillable outranks balance",
			row:    Row{"ending-warehouse-balance": "3", "afn-fulfillable-quantity": "8"},
			want:   8,
			wantOK: true,
		},
		{
			name:   "all-zero chain is still a valid zero",
			row:    Row{"quantity": "0", "available": "0"},
			want:   0,
			wantOK: true,
		},
		{
			name:   "nothing parseable",
			row:    Row{"quantity": "n/a"},
			want:   0,
			wantOK: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PickQuantity(NewRowView(tc.row), "quantity")
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("PickQuantity = (%d, %v), want (%d, %v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}
