package interfaces

// TextResolver maps message keys to customer-facing text. All surface
// wording lives behind this interface; the flow never hardcodes copy.
type TextResolver interface {
	Resolve(key string, locale string) string
}
