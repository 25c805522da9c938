package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIllegalRelativePath is returned when a relative name climbs above the root.
var ErrIllegalRelativePath = errors.New("illegal relative path")

func split(fullName string) []string {
	if fullName == "" {
		return nil
	}
	return strings.Split(fullName, "/")
}

// CanonicalName resolves path against the full name of a context group.
// "." and ".." are handled as in a filesystem and a leading "/" makes path
// absolute. The result is a full name from the root.
func CanonicalName(contextFullName, path string) (string, error) {
	var name []string
	for _, c := range split(contextFullName) {
		if c != "" {
			name = append(name, c)
		}
	}
	for i, p := range strings.Split(path, "/") {
		switch {
		case i == 0 && p == "":
			name = name[:0]
		case p == "..":
			if len(name) == 0 {
				return "", fmt.Errorf("%w: %q within context %q", ErrIllegalRelativePath, path, contextFullName)
			}
			name = name[:len(name)-1]
		case p == "." || p == "":
			continue
		default:
			name = append(name, p)
		}
	}
	return strings.Join(name, "/"), nil
}

// RelativeNameFrom returns the name of itemFullName as seen from groupFullName,
// using ".." to climb out of the group where needed. Identical names yield ".".
func RelativeNameFrom(itemFullName, groupFullName string) string {
	item := split(itemFullName)
	group := split(groupFullName)

	i := 0
	for i < len(item) && i < len(group) && item[i] == group[i] {
		i++
	}

	var parts []string
	for j := i; j < len(group); j++ {
		parts = append(parts, "..")
	}
	parts = append(parts, item[i:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}
