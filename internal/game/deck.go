// internal/game/deck.go
package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrDeckExhausted is returned when drawing from an empty deck.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck is an ordered stack of cards. The last element is the top.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck builds an unshuffled 52-card deck. A nil rng falls back to the global source on Shuffle.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.Build()
	return d
}

// NewDeckFromCards returns a deck holding exactly the given cards; cards[len-1] is drawn first.
func NewDeckFromCards(cards []Card) *Deck {
	c := make([]Card, len(cards))
	copy(c, cards)
	return &Deck{cards: c}
}

// Build resets the deck to all 52 suit/rank combinations, suits outer, ranks inner.
func (d *Deck) Build() {
	d.cards = make([]Card, 0, len(Suits)*len(Ranks))
	for _, suit := range Suits {
		for _, rank := range Ranks {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
}

// Shuffle permutes the deck in place using Fisher-Yates.
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.Intn(i + 1)
		} else {
			j = rand.Intn(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckExhausted
	}
	top := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return top, nil
}

func (d *Deck) Len() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards in stack order.
func (d *Deck) Cards() []Card {
	c := make([]Card, len(d.cards))
	copy(c, d.cards)
	return c
}

// DeckFactory produces the deck a round is dealt from.
type DeckFactory func() *Deck

// ShuffledDeckFactory returns a factory building a fresh shuffled deck per call.
// Seed 0 picks a time-based seed. The returned factory is safe for concurrent use.
func ShuffledDeckFactory(seed int64) DeckFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))
	return func() *Deck {
		mu.Lock()
		defer mu.Unlock()
		d := NewDeck(rng)
		d.Shuffle()
		// the deck must not keep the shared rng past the lock
		d.rng = nil
		return d
	}
}

// StackedDeckFactory always deals the given cards in order: cards[0] is drawn first.
func StackedDeckFactory(cards ...Card) DeckFactory {
	return func() *Deck {
		reversed := make([]Card, len(cards))
		for i, c := range cards {
			reversed[len(cards)-1-i] = c
		}
		return NewDeckFromCards(reversed)
	}
}
