package domain

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/promptshield/internal/validation"
)

// AnonymizeOptions carries per-operation options.
type AnonymizeOptions struct {
	// TTLSeconds is the server-side retention for the correlation mapping,
	// bounded to (0, 86400]. Nil means the server default; an explicit
	// value outside the bounds, including zero, is rejected.
	TTLSeconds *int
}

// Validate rejects out-of-range options locally, before any network call.
func (o *AnonymizeOptions) Validate() error {
	if o == nil || o.TTLSeconds == nil {
		return nil
	}
	err := validation.Validate(*o.TTLSeconds, validation.By(customValidation.TTLSeconds))
	return customValidation.WrapValidationError(err)
}

// Stats are the optional replacement statistics returned by an anonymize
// operation: how many values were substituted and their category labels.
type Stats struct {
	Replaced int      `json:"replaced"`
	Types    []string `json:"types,omitempty"`
}
