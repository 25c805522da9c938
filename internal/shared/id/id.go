// Package id provides ULID based identifiers for the host.
//
// IDs are lexicographically sortable and carry a short type prefix so they are
// readable in logs:
//   - build_*: one unit of work (a build) producing a log
//   - pass_*:  one loading pass over the persistence root
//   - req_*:   one API request
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// BuildID identifies a unit of work.
type BuildID string

// LoadPassID identifies a single boot or reload pass.
type LoadPassID string

// RequestID identifies an API request.
type RequestID string

const (
	BuildPrefix    = "build"
	LoadPassPrefix = "pass"
	RequestPrefix  = "req"
)

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewBuildID generates a new build ID
func NewBuildID() BuildID {
	return BuildID(Default().GenerateWithPrefix(BuildPrefix))
}

// NewLoadPassID generates a new load pass ID
func NewLoadPassID() LoadPassID {
	return LoadPassID(Default().GenerateWithPrefix(LoadPassPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id BuildID) String() string    { return string(id) }
func (id LoadPassID) String() string { return string(id) }
func (id RequestID) String() string  { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID string
func Parse(id string) (ulid.ULID, error) {
	return ulid.Parse(id)
}

// ParsePrefixed validates a "prefix_ULID" string and returns the ULID part.
func ParsePrefixed(prefix, s string) (ulid.ULID, error) {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return ulid.ULID{}, fmt.Errorf("id %q does not have prefix %s", s, prefix)
	}
	return ulid.Parse(rest)
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
