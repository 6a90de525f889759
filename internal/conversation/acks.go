package conversation

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

var (
	namedAcks = []string{"Thanks, %s!", "Perfect, %s!", "Great, %s!", "Got it, %s!"}
	plainAcks = []string{"Thanks for that!", "Perfect!", "Great!", "Got it!"}
)

// AckVariants returns every acknowledgment the built-in pickers can produce
// for name. An empty name selects the impersonal variants.
func AckVariants(name string) []string {
	if name == "" {
		out := make([]string, len(plainAcks))
		copy(out, plainAcks)
		return out
	}
	out := make([]string, len(namedAcks))
	for i, f := range namedAcks {
		out[i] = fmt.Sprintf(f, name)
	}
	return out
}

// Acknowledger picks the short affirmation shown after a committed answer.
type Acknowledger interface {
	Acknowledge(name string) string
}

// RandomAcks picks variants from a seeded pseudo-random source.
type RandomAcks struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomAcks returns a picker seeded with seed.
func NewRandomAcks(seed uint64) *RandomAcks {
	return &RandomAcks{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

// Acknowledge implements Acknowledger.
func (r *RandomAcks) Acknowledge(name string) string {
	variants := AckVariants(name)
	r.mu.Lock()
	i := r.rng.IntN(len(variants))
	r.mu.Unlock()
	return variants[i]
}

// RotatingAcks cycles through the variants in order.
type RotatingAcks struct {
	mu   sync.Mutex
	next int
}

// Acknowledge implements Acknowledger.
func (r *RotatingAcks) Acknowledge(name string) string {
	variants := AckVariants(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	ack := variants[r.next%len(variants)]
	r.next++
	return ack
}
