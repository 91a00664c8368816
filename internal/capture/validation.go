package capture

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	MinDimension = 100
	MaxDimension = 3840
)

// urlPattern accepts an optional http(s) scheme, a dotted hostname with a
// TLD of at least two letters or a dotted-quad IP, then optional port, path,
// query and fragment.
var urlPattern = regexp.MustCompile(`(?i)^(https?://)?((([a-z\d]([a-z\d-]*[a-z\d])*)\.)+[a-z]{2,}|((\d{1,3}\.){3}\d{1,3}))(:\d+)?(/[-a-z\d%_.~+]*)*(\?[;&a-z\d%_.~+=-]*)?(#[-a-z\d_]*)?$`)

// ErrInvalidForm is matched by every *ValidationErrors value
var ErrInvalidForm = errors.New("invalid capture form")

// ValidationError represents a validation error for a specific field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationErrors is returned when a submit is rejected before reaching the capture operation
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ErrInvalidForm.Error()
	}
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidForm, strings.Join(parts, "; "))
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalidForm
}

// ValidateURL reports whether input looks like a website address
func ValidateURL(input string) bool {
	if input == "" {
		return false
	}
	return urlPattern.MatchString(input)
}

// ValidateDimensions reports whether both values are within [MinDimension, MaxDimension]
func ValidateDimensions(width, height int) bool {
	return inRange(width) && inRange(height)
}

func inRange(v int) bool {
	return v >= MinDimension && v <= MaxDimension
}

func validateURLField(url string) []ValidationError {
	if url == "" {
		return []ValidationError{{
			Field:   "url",
			Message: "Website URL is required",
			Code:    "required",
		}}
	}
	if !ValidateURL(url) {
		return []ValidationError{{
			Field:   "url",
			Message: "Please enter a valid URL (e.g., https://example.com)",
			Code:    "invalid_url",
		}}
	}
	return nil
}

func validateDimensionField(field, name string, value int) []ValidationError {
	if value == 0 {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("%s is required", name),
			Code:    "required",
		}}
	}
	if !inRange(value) {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("%s must be between %d and %d pixels", name, MinDimension, MaxDimension),
			Code:    "out_of_range",
		}}
	}
	return nil
}
