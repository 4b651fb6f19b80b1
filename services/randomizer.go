package services

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"
)

const inviteCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Randomizer picks the spy and the round location. It keeps its own seeded
// source so role assignment is not predictable from anything a player can
// observe, without going through crypto/rand on every draw.
type Randomizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomizer() *Randomizer {
	var seed int64
	if err := binary.Read(crand.Reader, binary.LittleEndian, &seed); err != nil {
		seed = time.Now().UnixNano()
	}
	return &Randomizer{rng: rand.New(rand.NewSource(seed))}
}

// PickSpy returns a uniformly random player index in [0, numPlayers).
func (r *Randomizer) PickSpy(numPlayers int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(numPlayers)
}

// PickLocation returns a uniformly random entry of the catalog.
func (r *Randomizer) PickLocation(catalog []string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return catalog[r.rng.Intn(len(catalog))]
}

// generateInviteCode returns a 6-character uppercase alphanumeric code.
// Uniqueness among live rooms is enforced by the caller against the store.
func (r *Randomizer) generateInviteCode(length int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := make([]byte, length)
	for i := range code {
		code[i] = inviteCodeChars[r.rng.Intn(len(inviteCodeChars))]
	}
	return string(code)
}
