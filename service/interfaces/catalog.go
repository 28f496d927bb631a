package interfaces

import "samsariya-backend/model"

// Catalog is the read-only price/category/availability view the flow and
// pricing code consume. Implementations refresh periodically; reads must be
// cheap and safe for concurrent use.
type Catalog interface {
	Price(key string) (int, bool)
	Category(key string) (model.Category, bool)
	IsAvailable(key string) bool
	// DisplayName falls back to the key when no name is known.
	DisplayName(key string) string
	// Keys returns the catalog keys of one category, for menu building.
	Keys(category model.Category) []string
}
