// internal/game/hand.go
package game

// HiddenCard is the marker shown in place of the dealer's hole card.
const HiddenCard = "hidden"

// BustLimit is the highest total a hand can hold without busting.
const BustLimit = 21

// CalculateTotal returns the best blackjack total for hand, counting aces as 1
// only as far as needed to stay at or under 21. The result may exceed 21.
func CalculateTotal(hand []Card) int {
	total := 0
	aces := 0
	for _, c := range hand {
		total += c.Value()
		if c.Rank == Ace {
			aces++
		}
	}
	for total > BustLimit && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

func IsBust(hand []Card) bool {
	return CalculateTotal(hand) > BustLimit
}

// DisplayHand renders each card as "<rank> of <suit>". With hideFirst the
// first card is replaced by HiddenCard.
func DisplayHand(hand []Card, hideFirst bool) []string {
	out := make([]string, 0, len(hand))
	for i, c := range hand {
		if i == 0 && hideFirst {
			out = append(out, HiddenCard)
			continue
		}
		out = append(out, c.String())
	}
	return out
}
