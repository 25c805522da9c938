package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// Size limits (in bytes)
const (
	MaxJSONSize         = 1 * 1024 * 1024 // 1MB
	MaxBuildRequestSize = 64 * 1024       // 64KB
)

// String length limits
const (
	MaxNameLength        = 256
	MaxDisplayNameLength = 256
	MaxDescriptionLength = 2048
	MaxJSONDepth         = 20
)

// unsafeNameChars may not appear in item names; they are either URL or
// filesystem metacharacters.
const unsafeNameChars = `?*/\%!@#$^&|<>[]:;`

var (
	// ErrInvalidName marks a name rejected by ItemName.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidValue marks a field rejected by ValidateString.
	ErrInvalidValue = errors.New("invalid value")
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidValue, fieldName)
	}
	if value == "" {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%w: %s must be at least %d characters", ErrInvalidValue, fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%w: %s must not exceed %d characters", ErrInvalidValue, fieldName, maxLen)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%w: %s contains invalid characters", ErrInvalidValue, fieldName)
	}
	return nil
}

// ItemName reports whether name can be used as an item name. Names become
// directory names and URL segments, so "." and "..", control codes, URL and
// shell metacharacters and a trailing dot are refused.
func ItemName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: no name is specified", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name must not exceed %d characters", ErrInvalidName, MaxNameLength)
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "." || trimmed == ".." {
		return fmt.Errorf("%w: %q is not an allowed name", ErrInvalidName, trimmed)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains a control code", ErrInvalidName, name)
		}
		if strings.ContainsRune(unsafeNameChars, r) {
			return fmt.Errorf("%w: %q is an unsafe character", ErrInvalidName, r)
		}
	}
	if strings.HasSuffix(trimmed, ".") {
		return fmt.Errorf("%w: %q ends with a dot", ErrInvalidName, name)
	}
	return nil
}

// DisplayName validates an optional display name.
func DisplayName(name string) error {
	return ValidateString(name, "display name", 0, MaxDisplayNameLength, false)
}

// Description validates an optional description.
func Description(description string) error {
	return ValidateString(description, "description", 0, MaxDescriptionLength, false)
}

// JSONSizeValidator validates JSON size limits
type JSONSizeValidator struct {
	maxSize int
}

// NewJSONSizeValidator creates a new validator with the specified max size
func NewJSONSizeValidator(maxSize int) *JSONSizeValidator {
	return &JSONSizeValidator{maxSize: maxSize}
}

// DefaultJSONValidator returns a validator with the default 1MB limit
func DefaultJSONValidator() *JSONSizeValidator {
	return NewJSONSizeValidator(MaxJSONSize)
}

// ValidateSize checks if the data size is within limits
func (v *JSONSizeValidator) ValidateSize(data []byte) error {
	if size := len(data); size > v.maxSize {
		return fmt.Errorf("JSON size %d bytes exceeds maximum %d bytes", size, v.maxSize)
	}
	return nil
}

// Decode checks size, nesting depth and syntax, then unmarshals data into out.
func (v *JSONSizeValidator) Decode(data []byte, out any) error {
	if err := v.ValidateSize(data); err != nil {
		return err
	}
	var generic any
	if err := sonic.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := ValidateJSONDepth(generic, MaxJSONDepth); err != nil {
		return err
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ValidateJSONDepth checks if JSON nesting depth is within limits
func ValidateJSONDepth(data any, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data any, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("JSON nesting depth %d exceeds maximum %d", currentDepth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]any:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []any:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}
