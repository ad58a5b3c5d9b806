// Package shortid produces short, time-ordered identifiers for status
// history rows. The default format is 7 characters: a 4-character time
// bucket (about 56 seconds per bucket across a 3-year horizon) followed by
// 3 random characters. IDs generated in the same bucket share a prefix, so
// lexicographic order tracks insertion order closely enough for history
// queries while staying far smaller than a UUID.
package shortid

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	base     = len(alphabet)

	timeChars   = 4
	randChars   = 3
	longRandom  = 5 // escalated variant: timeChars + longRandom = 9
	maxAttempts = 10

	// bucketSeconds spreads 36^4 buckets over roughly three years.
	bucketSeconds = 56

	// seenLimit bounds the recently-seen set; old entries are evicted FIFO.
	seenLimit = 8192
)

// epoch is the fixed origin for the time prefix.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator produces IDs and tracks recently issued ones to avoid
// collisions inside a bucket. Safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	seen  map[string]struct{}
	order []string
}

func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded creates a generator with a deterministic random source.
func NewSeeded(seed int64) *Generator {
	return &Generator{
		rng:  rand.New(rand.NewSource(seed)),
		seen: make(map[string]struct{}),
	}
}

// Next returns a fresh ID for the given time. On repeated collisions with
// the recently-seen set it escalates to the 9-character variant, and after
// ten failed attempts falls back to a UUID.
func (g *Generator) Next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	prefix := encodeBucket(now)

	id := prefix + g.randomSuffix(randChars)
	if g.remember(id) {
		return id
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		id = prefix + g.randomSuffix(longRandom)
		if g.remember(id) {
			return id
		}
	}
	return uuid.NewString()
}

// remember records the ID if unseen and reports whether it was fresh.
func (g *Generator) remember(id string) bool {
	if _, dup := g.seen[id]; dup {
		return false
	}
	g.seen[id] = struct{}{}
	g.order = append(g.order, id)
	if len(g.order) > seenLimit {
		delete(g.seen, g.order[0])
		g.order = g.order[1:]
	}
	return true
}

// Prime inserts IDs into the recently-seen set, forcing collisions. Used by
// tests to exercise the fallback path.
func (g *Generator) Prime(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		g.remember(id)
	}
}

func (g *Generator) randomSuffix(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = alphabet[g.rng.Intn(base)]
	}
	return string(buf)
}

func encodeBucket(now time.Time) string {
	bucket := int(now.Sub(epoch)/time.Second) / bucketSeconds
	span := 1
	for i := 0; i < timeChars; i++ {
		span *= base
	}
	bucket %= span
	if bucket < 0 {
		bucket += span
	}

	buf := make([]byte, timeChars)
	for i := timeChars - 1; i >= 0; i-- {
		buf[i] = alphabet[bucket%base]
		bucket /= base
	}
	return string(buf)
}

// TimeOf extracts the bucket start time encoded in an ID's prefix. Returns
// false for UUID fallbacks or malformed prefixes.
func TimeOf(id string) (time.Time, bool) {
	if len(id) < timeChars {
		return time.Time{}, false
	}
	if _, err := uuid.Parse(id); err == nil {
		return time.Time{}, false
	}

	bucket := 0
	for i := 0; i < timeChars; i++ {
		idx := indexOf(id[i])
		if idx < 0 {
			return time.Time{}, false
		}
		bucket = bucket*base + idx
	}
	return epoch.Add(time.Duration(bucket) * bucketSeconds * time.Second), true
}

func indexOf(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	default:
		return -1
	}
}
