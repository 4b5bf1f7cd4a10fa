package bot

import (
	"math/rand"
	"sync"
	"time"

	"mascarpone/internal/domain"
)

// RandomBrain picks uniformly among legal moves.
type RandomBrain struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomBrain returns a RandomBrain; a nil rng gets a time-seeded source.
func NewRandomBrain(rng *rand.Rand) *RandomBrain {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomBrain{rng: rng}
}

func (b *RandomBrain) Declare(view domain.PlayerView) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	legal := legalDeclarations(view)
	return legal[b.rng.Intn(len(legal))]
}

func (b *RandomBrain) Play(view domain.PlayerView) (int, bool) {
	if len(view.Hand) == 0 {
		return 0, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.rng.Intn(len(view.Hand))
	return idx, view.Hand[idx].IsAce() && b.rng.Intn(2) == 0
}
