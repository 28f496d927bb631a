package service

import (
	"sort"

	"samsariya-backend/service/interfaces"
)

// ComputeTotal sums price(key)·qty over all items with qty > 0. A key absent
// from the catalog is a hard error, never treated as zero-cost.
func ComputeTotal(items map[string]int, catalog interfaces.Catalog) (int, error) {
	total := 0
	// Deterministic iteration so the first unknown key reported is stable.
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		qty := items[key]
		if qty <= 0 {
			continue
		}
		price, ok := catalog.Price(key)
		if !ok {
			return 0, &UnknownCatalogKeyError{Key: key}
		}
		total += price * qty
	}
	return total, nil
}
