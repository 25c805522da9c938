package model

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Base is an embeddable Node. The parent reference is non-owning: Base never
// walks down, and the parent's lifetime is managed by whoever loaded it.
type Base struct {
	mu          sync.RWMutex
	name        string
	displayName string
	parent      Node
}

// Attach sets the parent and local name. self must be the outer object that
// embeds this Base so cycles can be detected. It is called after an object is
// read from disk and again on every reload.
func (b *Base) Attach(self, parent Node, name string) error {
	if name == "" {
		return fmt.Errorf("model: name is required")
	}
	if parent != nil {
		cycle := false
		walk(parent, func(n Node) bool {
			if n == self {
				cycle = true
				return false
			}
			return true
		})
		if cycle {
			return fmt.Errorf("%w: %s cannot be placed under %s", ErrAncestorCycle, name, FullName(parent))
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = parent
	b.name = name
	return nil
}

// Name returns the local name.
func (b *Base) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// DisplayName returns the display name, falling back to the local name.
func (b *Base) DisplayName() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.displayName != "" {
		return b.displayName
	}
	return b.name
}

// SetDisplayName overrides the display name. An empty value restores the default.
func (b *Base) SetDisplayName(displayName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.displayName = displayName
}

// Parent returns the parent node, or nil for a detached or root node.
func (b *Base) Parent() Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.parent
}

// FullName returns the "/"-joined names from the root to this node.
func (b *Base) FullName() string {
	return FullName(b)
}

// FullDisplayName returns the " » "-joined display names from the root to this node.
func (b *Base) FullDisplayName() string {
	return FullDisplayName(b)
}

// ShortURL returns this node's fragment relative to its parent.
func (b *Base) ShortURL() string {
	return ShortURL(b)
}

// URL returns this node's fragment relative to the system root.
func (b *Base) URL() string {
	return URL(b)
}

// walk visits n and its ancestors bottom-up until fn returns false, the root
// is reached, or a node repeats.
func walk(n Node, fn func(Node) bool) {
	seen := make(map[Node]struct{})
	for cur := n; cur != nil; cur = cur.Parent() {
		if _, ok := seen[cur]; ok {
			return
		}
		seen[cur] = struct{}{}
		if !fn(cur) {
			return
		}
	}
}

// chain returns n and its ancestors ordered root first.
func chain(n Node) []Node {
	var nodes []Node
	walk(n, func(cur Node) bool {
		nodes = append(nodes, cur)
		return true
	})
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes
}

func join(n Node, sep string, part func(Node) string) string {
	var parts []string
	for _, cur := range chain(n) {
		if p := part(cur); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, sep)
}

// FullName computes the full name of n. Ancestors with an empty local name,
// such as the unnamed system root, contribute no segment.
func FullName(n Node) string {
	if n == nil {
		return ""
	}
	return join(n, "/", Node.Name)
}

// FullDisplayName computes the display path of n.
func FullDisplayName(n Node) string {
	if n == nil {
		return ""
	}
	return join(n, " » ", func(cur Node) string {
		if cur.Parent() == nil && cur.Name() == "" {
			return ""
		}
		return cur.DisplayName()
	})
}

// ShortURL computes the fragment of n relative to its parent. The root has no
// fragment of its own.
func ShortURL(n Node) string {
	if n == nil || n.Parent() == nil {
		return ""
	}
	prefix := DefaultURLChildPrefix
	if g, ok := n.Parent().(Group); ok {
		prefix = g.URLChildPrefix()
	}
	segment := url.PathEscape(n.Name())
	if prefix == "." || prefix == "" {
		return segment + "/"
	}
	return prefix + "/" + segment + "/"
}

// URL computes the fragment of n relative to the system root by concatenating
// the short URLs of every node below the root.
func URL(n Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	for _, cur := range chain(n) {
		sb.WriteString(ShortURL(cur))
	}
	return sb.String()
}
