package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidURL marks a URL fragment that starts with "/" or lacks a trailing "/".
	ErrInvalidURL = errors.New("invalid url fragment")
	// ErrAncestorCycle marks a parent assignment that would make a node its own ancestor.
	ErrAncestorCycle = errors.New("ancestor cycle")
)

// Addressable objects expose a URL fragment relative to the system root.
type Addressable interface {
	URL() string
}

// FullNamed objects expose a hierarchical, "/"-separated name.
type FullNamed interface {
	Name() string
	FullName() string
}

// ModelObject is anything with a human readable name.
type ModelObject interface {
	DisplayName() string
}

// AddressableModelObject is a displayable object that also has a URL.
type AddressableModelObject interface {
	Addressable
	ModelObject
}

// Node is a member of the item tree. Parent returns nil for the root.
// Implementations must be comparable (pointer receivers).
type Node interface {
	Name() string
	DisplayName() string
	Parent() Node
}

// Group is implemented by nodes that contain children and want to control
// the URL segment placed before each child name.
type Group interface {
	URLChildPrefix() string
}

// DefaultURLChildPrefix is used when a parent does not implement Group.
const DefaultURLChildPrefix = "job"

// ValidateURL checks the fragment format: empty, or relative with a trailing slash.
func ValidateURL(fragment string) error {
	if fragment == "" {
		return nil
	}
	if strings.HasPrefix(fragment, "/") {
		return fmt.Errorf("%w: %q starts with /", ErrInvalidURL, fragment)
	}
	if !strings.HasSuffix(fragment, "/") {
		return fmt.Errorf("%w: %q does not end with /", ErrInvalidURL, fragment)
	}
	return nil
}
