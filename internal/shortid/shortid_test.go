package shortid

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNextFormat(t *testing.T) {
	g := NewSeeded(1)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	id := g.Next(now)
	if len(id) != timeChars+randChars {
		t.Fatalf("expected %d chars, got %q", timeChars+randChars, id)
	}
	for i := 0; i < len(id); i++ {
		if !strings.ContainsRune(alphabet, rune(id[i])) {
			t.Fatalf("character %q outside alphabet in %q", id[i], id)
		}
	}
}

func TestSameBucketSharesPrefix(t *testing.T) {
	g := NewSeeded(1)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a := g.Next(now)
	b := g.Next(now.Add(time.Second))
	if a[:timeChars] != b[:timeChars] {
		t.Fatalf("same bucket, different prefixes: %q vs %q", a, b)
	}

	c := g.Next(now.Add(2 * bucketSeconds * time.Second))
	if a[:timeChars] == c[:timeChars] {
		t.Fatalf("different buckets share prefix: %q vs %q", a, c)
	}
	if !(a[:timeChars] < c[:timeChars]) {
		t.Fatalf("later bucket must sort after earlier: %q vs %q", a, c)
	}
}

func TestTimeOfRoundTrip(t *testing.T) {
	g := NewSeeded(7)
	now := time.Date(2025, 3, 15, 8, 30, 0, 0, time.UTC)

	id := g.Next(now)
	got, ok := TimeOf(id)
	if !ok {
		t.Fatalf("TimeOf rejected %q", id)
	}
	if now.Sub(got) < 0 || now.Sub(got) >= bucketSeconds*time.Second {
		t.Fatalf("decoded bucket start %v too far from %v", got, now)
	}
}

func TestTimeOfRejectsGarbage(t *testing.T) {
	if _, ok := TimeOf("ab"); ok {
		t.Fatal("short id accepted")
	}
	if _, ok := TimeOf("AB!?xyz"); ok {
		t.Fatal("id outside alphabet accepted")
	}
	if _, ok := TimeOf(uuid.NewString()); ok {
		t.Fatal("uuid fallback must not decode to a time")
	}
}

// Two generators with the same seed walk the same random sequence, so one
// can predict and occupy every ID the other would produce.
func TestCollisionEscalatesToUUID(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	twin := NewSeeded(42)
	var taken []string
	taken = append(taken, twin.Next(now))
	for i := 0; i < maxAttempts; i++ {
		taken = append(taken, encodeBucket(now)+twin.randomSuffix(longRandom))
	}

	g := NewSeeded(42)
	g.Prime(taken...)

	id := g.Next(now)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid fallback after exhausted retries, got %q", id)
	}
}

func TestPrimeForcesLongVariant(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	twin := NewSeeded(9)
	first := twin.Next(now)

	g := NewSeeded(9)
	g.Prime(first)

	id := g.Next(now)
	if len(id) != timeChars+longRandom {
		t.Fatalf("expected escalated %d-char id, got %q", timeChars+longRandom, id)
	}
	if id[:timeChars] != first[:timeChars] {
		t.Fatalf("escalated id lost its time prefix: %q", id)
	}
}
