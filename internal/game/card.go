// internal/game/card.go
package game

import (
	"fmt"
	"strconv"
)

// Suit is one of the four French suits, rendered in upper case.
type Suit string

const (
	Heart   Suit = "HEART"
	Diamond Suit = "DIAMOND"
	Club    Suit = "CLUB"
	Spade   Suit = "SPADE"
)

// Rank is the face of a card: "A", "2".."10", "J", "Q" or "K".
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Suits and Ranks are listed in deck build order.
var (
	Suits = []Suit{Heart, Diamond, Club, Spade}
	Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
)

// Card is an immutable suit/rank pair.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// Value returns the nominal blackjack value. Aces count 11 here; the scorer softens them.
func (c Card) Value() int {
	switch c.Rank {
	case Ace:
		return 11
	case Jack, Queen, King:
		return 10
	}
	v, err := strconv.Atoi(string(c.Rank))
	if err != nil {
		// only reachable for a rank outside Ranks
		return 0
	}
	return v
}

// String renders the card as "<rank> of <suit>", e.g. "A of HEART".
func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}
