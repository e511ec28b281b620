package search

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validation messages shown to the user
const (
	MsgQueryRequired     = "Please enter a search query"
	MsgQueryTooShort     = "Search query must be at least 3 characters long"
	MsgQueryAlphanumeric = "Search query must contain at least one letter or number"
)

// MinQueryLength is the shortest accepted query after trimming
const MinQueryLength = 3

var alphanumeric = regexp.MustCompile(`[a-zA-Z0-9]`)

// ValidationError is a rejected search filter
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a rejected search filter
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// ValidateQuery checks a raw query and returns it trimmed
func ValidateQuery(query string) (string, error) {
	trimmed := strings.TrimSpace(query)

	err := validation.Validate(trimmed,
		validation.Required.Error(MsgQueryRequired),
		validation.RuneLength(MinQueryLength, 0).Error(MsgQueryTooShort),
		validation.Match(alphanumeric).Error(MsgQueryAlphanumeric),
	)
	if err != nil {
		return "", &ValidationError{Message: err.Error()}
	}
	return trimmed, nil
}
