// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	KeyInternalError     = "error.internal"
	KeyValidationInvalid = "validation.invalid"
	KeyRateLimitExceeded = "rate_limit.exceeded"

	// Products
	KeyProductNotFound  = "product.not_found"
	KeyProductInvalidID = "product.invalid_id"
)
