package host

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/model"
)

// ItemByFullName resolves a "/"-separated full name such as "team/api".
func (i *Instance) ItemByFullName(fullName string) (item.Item, error) {
	parts := strings.Split(strings.Trim(fullName, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, fullName)
	}

	cur, ok := i.Item(parts[0])
	for _, name := range parts[1:] {
		if !ok {
			break
		}
		folder, isFolder := cur.(*item.Folder)
		if !isFolder {
			ok = false
			break
		}
		cur, ok = folder.Item(name)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fullName)
	}
	return cur, nil
}

// ItemByRelativeName resolves path relative to the item or folder named by
// contextFullName. Paths may use ".", ".." and a leading "/" for the root.
func (i *Instance) ItemByRelativeName(contextFullName, path string) (item.Item, error) {
	full, err := model.CanonicalName(contextFullName, path)
	if err != nil {
		return nil, err
	}
	return i.ItemByFullName(full)
}

// ResolveURL finds the item addressed by a URL fragment such as
// "job/team/job/api/". The fragment is walked one group at a time; each
// segment pair must use the child prefix of the group it is resolved in.
func (i *Instance) ResolveURL(fragment string) (item.Item, error) {
	if err := model.ValidateURL(fragment); err != nil {
		return nil, err
	}
	segments := strings.Split(strings.TrimSuffix(fragment, "/"), "/")
	if fragment == "" || len(segments)%2 != 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, fragment)
	}

	var group model.Group = i
	var cur item.Item
	for n := 0; n < len(segments); n += 2 {
		if group == nil || segments[n] != group.URLChildPrefix() {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, fragment)
		}
		name, err := url.PathUnescape(segments[n+1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrNotFound, fragment, err)
		}

		var ok bool
		switch g := group.(type) {
		case *Instance:
			cur, ok = g.Item(name)
		case *item.Folder:
			cur, ok = g.Item(name)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, fragment)
		}
		group, _ = cur.(model.Group)
	}
	return cur, nil
}
