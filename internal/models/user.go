// internal/models/user.go
package models

import (
	"errors"
	"fmt"
)

// DefaultChips is the stake a user receives on first join.
const DefaultChips = 1000

var (
	// ErrInsufficientChips indicates a bet larger than the user's balance.
	ErrInsufficientChips = errors.New("insufficient chips")

	// ErrInvalidBet indicates a non-positive bet amount.
	ErrInvalidBet = errors.New("bet must be positive")
)

// User is the ledger record for a player, keyed by Name.
type User struct {
	Name  string `json:"name"`
	Chips int    `json:"chips"`

	// HighestAmount is the largest chip balance ever observed for this user.
	HighestAmount int `json:"highest_amount"`
}

// NewUser returns a user holding chips, with the high-water mark at the same value.
func NewUser(name string, chips int) *User {
	return &User{
		Name:          name,
		Chips:         chips,
		HighestAmount: chips,
	}
}

// Bet removes amount from the user's chips.
func (u *User) Bet(amount int) error {
	if amount <= 0 {
		return ErrInvalidBet
	}
	if amount > u.Chips {
		return fmt.Errorf("bet %d with %d chips: %w", amount, u.Chips, ErrInsufficientChips)
	}
	u.Chips -= amount
	return nil
}

// Win adds amount to the user's chips and raises HighestAmount if exceeded.
func (u *User) Win(amount int) {
	u.Chips += amount
	if u.Chips > u.HighestAmount {
		u.HighestAmount = u.Chips
	}
}
