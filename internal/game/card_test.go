package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardValue(t *testing.T) {
	cases := map[Rank]int{
		Ace: 11, Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7,
		Eight: 8, Nine: 9, Ten: 10, Jack: 10, Queen: 10, King: 10,
	}
	for rank, want := range cases {
		assert.Equal(t, want, NewCard(Spade, rank).Value(), "rank %s", rank)
	}
}

func TestCardValueCoversRanks(t *testing.T) {
	for _, rank := range Ranks {
		assert.Positive(t, NewCard(Heart, rank).Value(), "rank %s", rank)
	}
	assert.Zero(t, NewCard(Heart, Rank("Z")).Value())
}

func TestCardString(t *testing.T) {
	assert.Equal(t, "A of HEART", NewCard(Heart, Ace).String())
	assert.Equal(t, "10 of CLUB", NewCard(Club, Ten).String())
	assert.Equal(t, "Q of DIAMOND", NewCard(Diamond, Queen).String())
}
