package service

import (
	"errors"
	"testing"

	"samsariya-backend/model"
)

// fakeCatalog is an in-memory Catalog for service tests.
type fakeCatalog struct {
	prices      map[string]int
	categories  map[string]model.Category
	names       map[string]string
	unavailable map[string]bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		prices: map[string]int{
			"samsa_beef":    15000,
			"samsa_chicken": 12000,
			"pack_box":      2000,
		},
		categories: map[string]model.Category{
			"samsa_beef":    model.CategorySamsa,
			"samsa_chicken": model.CategorySamsa,
			"pack_box":      model.CategoryPackaging,
		},
		names: map[string]string{
			"samsa_beef":    "Самса с говядиной",
			"samsa_chicken": "Самса с курицей",
			"pack_box":      "Коробка",
		},
		unavailable: map[string]bool{},
	}
}

func (c *fakeCatalog) Price(key string) (int, bool) {
	price, ok := c.prices[key]
	return price, ok
}

func (c *fakeCatalog) Category(key string) (model.Category, bool) {
	category, ok := c.categories[key]
	return category, ok
}

func (c *fakeCatalog) IsAvailable(key string) bool {
	if _, ok := c.prices[key]; !ok {
		return false
	}
	return !c.unavailable[key]
}

func (c *fakeCatalog) DisplayName(key string) string {
	if name, ok := c.names[key]; ok {
		return name
	}
	return key
}

func (c *fakeCatalog) Keys(category model.Category) []string {
	var keys []string
	for k, cat := range c.categories {
		if cat == category {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestComputeTotal(t *testing.T) {
	catalog := newFakeCatalog()

	testCases := []struct {
		name  string
		items map[string]int
		want  int
	}{
		{"empty cart", map[string]int{}, 0},
		{"single item", map[string]int{"samsa_beef": 1}, 15000},
		{"two beef one box", map[string]int{"samsa_beef": 2, "pack_box": 1}, 32000},
		{"zero quantity skipped", map[string]int{"samsa_beef": 0, "samsa_chicken": 3}, 36000},
		{"negative quantity skipped", map[string]int{"samsa_beef": -2, "pack_box": 2}, 4000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeTotal(tc.items, catalog)
			if err != nil {
				t.Fatalf("ComputeTotal failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("got total %d, want %d", got, tc.want)
			}
		})
	}
}

func TestComputeTotalUnknownKey(t *testing.T) {
	catalog := newFakeCatalog()

	_, err := ComputeTotal(map[string]int{"samsa_beef": 1, "mystery_item": 2}, catalog)
	if err == nil {
		t.Fatal("expected an error for an unknown catalog key")
	}

	var unknownErr *UnknownCatalogKeyError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownCatalogKeyError, got %T", err)
	}
	if unknownErr.Key != "mystery_item" {
		t.Errorf("got key %q, want %q", unknownErr.Key, "mystery_item")
	}
}

func TestComputeTotalRecomputedAfterMutation(t *testing.T) {
	catalog := newFakeCatalog()
	items := map[string]int{"samsa_beef": 2, "pack_box": 1}

	total, err := ComputeTotal(items, catalog)
	if err != nil {
		t.Fatalf("ComputeTotal failed: %v", err)
	}
	if total != 32000 {
		t.Fatalf("got total %d, want 32000", total)
	}

	// Every mutation path recomputes from scratch: incrementing and then
	// reverting lands back on the same total.
	items["samsa_beef"]++
	total, _ = ComputeTotal(items, catalog)
	if total != 47000 {
		t.Fatalf("got total %d after increment, want 47000", total)
	}

	items["samsa_beef"]--
	total, _ = ComputeTotal(items, catalog)
	if total != 32000 {
		t.Fatalf("got total %d after revert, want 32000", total)
	}
}
