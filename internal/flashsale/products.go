package flashsale

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Product is one flash-sale product entry. MediaID references a Media row and
// is validated on config writes only.
type Product struct {
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	NormalPrice string `json:"normal_price,omitempty"`
	PromoPrice  string `json:"promo_price,omitempty"`
	Stock       string `json:"stock,omitempty"`
	MediaID     string `json:"media_id"`
}

// ParseProducts strictly parses and normalizes a products payload for a
// config write. Rows without a name are dropped; a named row without a
// media_id is an error; the result must contain at least one product.
func ParseProducts(raw []byte) ([]Product, error) {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "" {
		return nil, fmt.Errorf("products_json is required")
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("products_json must be a JSON array of objects: %w", err)
	}

	var products []Product
	for i, row := range decoded {
		p := Product{
			Name:        stringField(row, "name"),
			Brand:       stringField(row, "brand"),
			NormalPrice: stringField(row, "normal_price"),
			PromoPrice:  stringField(row, "promo_price"),
			Stock:       stringField(row, "stock"),
			MediaID:     stringField(row, "media_id"),
		}
		if p.Name == "" {
			continue
		}
		if p.MediaID == "" {
			return nil, fmt.Errorf("products_json[%d].media_id is required when name is set", i)
		}
		products = append(products, p)
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("products_json must contain at least one product with a name")
	}
	return products, nil
}

func stringField(row map[string]interface{}, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// EncodeProducts serializes a normalized product list for storage
func EncodeProducts(products []Product) ([]byte, error) {
	return json.Marshal(products)
}

// LenientProducts decodes a stored products payload for runtime use. Any
// malformed payload contributes no products instead of failing the read, so
// one corrupt campaign cannot break unrelated device sync.
func LenientProducts(raw []byte) []Product {
	if len(raw) == 0 {
		return nil
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil
	}
	out := products[:0]
	for _, p := range products {
		if p.MediaID != "" {
			out = append(out, p)
		}
	}
	return out
}

// ProductMediaIDs returns the distinct media ids referenced by products,
// preserving first-seen order.
func ProductMediaIDs(products []Product) []string {
	seen := make(map[string]struct{}, len(products))
	var ids []string
	for _, p := range products {
		if p.MediaID == "" {
			continue
		}
		if _, ok := seen[p.MediaID]; ok {
			continue
		}
		seen[p.MediaID] = struct{}{}
		ids = append(ids, p.MediaID)
	}
	return ids
}

// ParseScheduleDays parses a CSV of day indexes, rejecting anything outside
// 0-6. Used on config writes.
func ParseScheduleDays(value string) ([]int, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return nil, fmt.Errorf("schedule_days is required")
	}
	seen := make(map[int]struct{})
	var days []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, err := parseDay(part)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("schedule_days must contain at least one day")
	}
	return days, nil
}

func parseDay(s string) (int, error) {
	var day int
	if _, err := fmt.Sscanf(s, "%d", &day); err != nil {
		return 0, fmt.Errorf("schedule_days must be comma-separated integers 0-6")
	}
	if day < 0 || day > 6 {
		return 0, fmt.Errorf("schedule_days values must be in range 0-6, got %d", day)
	}
	return day, nil
}

// lenientScheduleDays parses the stored day CSV for runtime use, silently
// dropping out-of-range or malformed entries.
func lenientScheduleDays(value string) map[int]struct{} {
	days := make(map[int]struct{})
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, err := parseDay(part)
		if err != nil {
			continue
		}
		days[day] = struct{}{}
	}
	return days
}
