// Package validation provides custom validation rules for the client.
package validation

import (
	"net/url"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/promptshield/internal/errors"
)

// MaxTTLSeconds is the upper bound for server-side retention of a
// correlation mapping. Values must fall in (0, MaxTTLSeconds].
const MaxTTLSeconds = 86400

// WrapValidationError wraps validation errors as ErrInvalidInput so callers
// can classify them without depending on the validation library.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// AbsoluteHTTPURL validates that a string parses as an absolute http or https URL.
var AbsoluteHTTPURL = validation.NewStringRuleWithError(
	func(s string) bool {
		u, err := url.Parse(s)
		if err != nil {
			return false
		}
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	},
	validation.NewError("validation_absolute_http_url", "must be an absolute http or https URL"),
)

// LeadingSlashPath validates that an endpoint path override starts with "/".
var LeadingSlashPath = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.HasPrefix(s, "/")
	},
	validation.NewError("validation_leading_slash_path", "must start with '/'"),
)

// TTLSeconds validates that a retention TTL falls in (0, MaxTTLSeconds].
// Any explicit value outside the bounds is rejected, including zero; an
// absent TTL must not reach this rule.
func TTLSeconds(value interface{}) error {
	ttl, ok := value.(int)
	if !ok {
		return validation.NewError("validation_ttl_type", "ttl must be an integer")
	}
	if ttl <= 0 || ttl > MaxTTLSeconds {
		return validation.NewError("validation_ttl_range", "ttl must be between 1 and 86400 seconds")
	}
	return nil
}
