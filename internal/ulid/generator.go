// Package ulid generates the identifiers handed out by the math view
// registry. Identifiers sort by creation time.
package ulid

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator creates monotonic ULIDs. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewGenerator returns a generator seeded from the current time.
func NewGenerator() *Generator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Generator{
		entropy: ulid.Monotonic(rng, 0),
		now:     time.Now,
	}
}

// Next returns an identifier greater than all previous ones created
// within the same millisecond.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

var (
	defaultGenerator = NewGenerator()
	generate         = defaultGenerator.Next
)

// GenerateID returns a new identifier.
func GenerateID() string {
	return generate()
}

// ValidID reports whether id is a canonical ULID string.
func ValidID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil && len(id) == ulid.EncodedSize
}

func ResetGenerator() {
	generate = defaultGenerator.Next
}

// MockGenerator makes GenerateID return value until ResetGenerator.
func MockGenerator(value string) {
	generate = func() string {
		return value
	}
}
