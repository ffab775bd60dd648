package sensor

import (
	"math/rand"
	"sync"
)

// FakeSource produces pseudo-random samples for running without hardware.
type FakeSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewFakeSource(seed int64) *FakeSource {
	return &FakeSource{rnd: rand.New(rand.NewSource(seed))}
}

func (f *FakeSource) Sample() (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint16(f.rnd.Intn(MaxValue + 1)), nil
}
