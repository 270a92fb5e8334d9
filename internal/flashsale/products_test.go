package flashsale

import (
	"testing"
)

func TestParseProducts(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		wantLen int
	}{
		{"valid single", `[{"name":"Soap","media_id":"m1","promo_price":"9000"}]`, false, 1},
		{"nameless rows dropped", `[{"media_id":"m1"},{"name":"Soap","media_id":"m2"}]`, false, 1},
		{"named row without media", `[{"name":"Soap"}]`, true, 0},
		{"not an array", `{"name":"Soap"}`, true, 0},
		{"invalid json", `[{`, true, 0},
		{"empty", ``, true, 0},
		{"all rows nameless", `[{"media_id":"m1"}]`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := ParseProducts([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProducts error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(products) != tt.wantLen {
				t.Errorf("got %d products, want %d", len(products), tt.wantLen)
			}
		})
	}
}

func TestLenientProductsSwallowsGarbage(t *testing.T) {
	if got := LenientProducts([]byte(`not json at all`)); got != nil {
		t.Errorf("LenientProducts(garbage) = %v, want nil", got)
	}
	got := LenientProducts([]byte(`[{"name":"A","media_id":"m1"},{"name":"B","media_id":""}]`))
	if len(got) != 1 || got[0].MediaID != "m1" {
		t.Errorf("LenientProducts should keep only rows with media ids, got %v", got)
	}
}

func TestProductMediaIDsDeduplicates(t *testing.T) {
	products := []Product{
		{Name: "A", MediaID: "m1"},
		{Name: "B", MediaID: "m2"},
		{Name: "C", MediaID: "m1"},
	}
	ids := ProductMediaIDs(products)
	if len(ids) != 2 || ids[0] != "m1" || ids[1] != "m2" {
		t.Errorf("ProductMediaIDs = %v, want [m1 m2]", ids)
	}
}

func TestParseScheduleDays(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
		wantLen int
	}{
		{"0,1,2", false, 3},
		{"6", false, 1},
		{" 0 , 1 ", false, 2},
		{"0,0,1", false, 2},
		{"7", true, 0},
		{"-1", true, 0},
		{"a,b", true, 0},
		{"", true, 0},
		{",,", true, 0},
	}
	for _, tt := range tests {
		days, err := ParseScheduleDays(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScheduleDays(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if len(days) != tt.wantLen {
			t.Errorf("ParseScheduleDays(%q) = %v, want %d days", tt.raw, days, tt.wantLen)
		}
	}
}
