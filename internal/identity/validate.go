package identity

import "github.com/go-playground/validator/v10"

// NewValidator builds the structural validator the services are
// constructed with. Field-level constraints live in the validate tags
// on the params structs; business rules never run before these pass.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
