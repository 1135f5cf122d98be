// Package deck builds and shuffles the 30-card set dealt each round.
package deck

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mcdev12/cardclash/go/internal/models"
)

const (
	// Size is the number of cards in every round.
	Size = 30

	plainCards   = 25
	highCards    = 4
	highValue    = 30
	jackpotValue = 50
)

// Builder produces freshly shuffled decks. It is safe for concurrent use.
type Builder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder constructs a Builder with its own time-based seed.
func NewBuilder() *Builder {
	return NewBuilderWithSeed(time.Now().UnixNano())
}

// NewBuilderWithSeed constructs a deterministic Builder, useful in tests.
func NewBuilderWithSeed(seed int64) *Builder {
	return &Builder{rng: rand.New(rand.NewSource(seed))}
}

// Build returns the full card multiset in a uniformly random order with all
// pick and reveal state cleared.
func (b *Builder) Build() []models.Card {
	cards := make([]models.Card, 0, Size)
	for i := 1; i <= plainCards; i++ {
		cards = append(cards, models.Card{ID: i, Value: i})
	}
	for i := 0; i < highCards; i++ {
		cards = append(cards, models.Card{ID: plainCards + 1 + i, Value: highValue})
	}
	cards = append(cards, models.Card{ID: Size, Value: jackpotValue})

	b.Shuffle(cards)
	return cards
}

// Shuffle permutes cards in place (Fisher-Yates).
func (b *Builder) Shuffle(cards []models.Card) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Intn returns a uniform random index in [0, n).
func (b *Builder) Intn(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Intn(n)
}
