package store

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Identifier prefixes per entity type. Hook IDs are caller-supplied and
// carry no generated prefix.
const (
	RunIDPrefix   = "run_"
	StepIDPrefix  = "step_"
	EventIDPrefix = "evt_"
)

// IDGenerator produces prefixed, lexicographically time-sortable identifiers.
// The ULID suffix combines a millisecond timestamp with random entropy; the
// monotonic reader guarantees strictly increasing values within one process
// even for identifiers generated in the same millisecond.
type IDGenerator struct {
	prefix string

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDGenerator creates a generator for the given entity prefix
func NewIDGenerator(prefix string) *IDGenerator {
	return &IDGenerator{
		prefix:  prefix,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewID returns the next identifier. Safe for concurrent use.
func (g *IDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return g.prefix + id.String()
}
