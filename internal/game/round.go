// internal/game/round.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/cache"
	"github.com/jason-s-yu/blackjack/internal/models"
	log "github.com/sirupsen/logrus"
)

// DealerStandsOn is the total at which the dealer stops drawing.
const DealerStandsOn = 17

// ErrInvalidTransition is returned when an operation is not allowed in the round's current state.
var ErrInvalidTransition = errors.New("invalid round transition")

// RoundState tracks where a round is in its lifecycle.
type RoundState int

const (
	NotStarted RoundState = iota
	PlayerTurn
	DealerTurn
	Resolved
)

func (s RoundState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case PlayerTurn:
		return "player_turn"
	case DealerTurn:
		return "dealer_turn"
	case Resolved:
		return "resolved"
	}
	return fmt.Sprintf("RoundState(%d)", int(s))
}

// Outcome is the status string reported when a round resolves.
type Outcome string

const (
	OutcomeNone         Outcome = ""
	OutcomePlayerBusted Outcome = "Player busted!"
	OutcomeDealerBusted Outcome = "Dealer busted!"
	OutcomeDealerWins   Outcome = "Dealer wins!"
	OutcomePlayerWins   Outcome = "Player wins!"
	OutcomeTie          Outcome = "It's a tie!"
)

// Payout returns the chips returned to the player for a wager of bet.
func (o Outcome) Payout(bet int) int {
	switch o {
	case OutcomePlayerWins, OutcomeDealerBusted:
		return 2 * bet
	case OutcomeTie:
		return bet
	}
	return 0
}

// ResolveOutcome compares final totals after the dealer has played.
func ResolveOutcome(dealerTotal, playerTotal int) Outcome {
	switch {
	case dealerTotal > BustLimit:
		return OutcomeDealerBusted
	case dealerTotal > playerTotal:
		return OutcomeDealerWins
	case dealerTotal < playerTotal:
		return OutcomePlayerWins
	default:
		return OutcomeTie
	}
}

// ActionPublisher receives an action record for every round transition.
type ActionPublisher interface {
	PublishRoundAction(ctx context.Context, record cache.RoundActionRecord) error
}

// Wager is a bet placed by User when the round started.
type Wager struct {
	User   *models.User
	Amount int
}

// StartResult is returned by Start. The dealer's first card is hidden.
// RoundID names the table; DealID is unique to this deal.
type StartResult struct {
	RoundID uuid.UUID `json:"round_id"`
	DealID  uuid.UUID `json:"deal_id"`
	Player  []string  `json:"player"`
	Dealer  []string  `json:"dealer"`
}

// HitResult is returned by Hit. Status is set only when the player busts.
// Settled is the wagering user paid out by this call, if any.
type HitResult struct {
	RoundID uuid.UUID    `json:"round_id"`
	DealID  uuid.UUID    `json:"deal_id"`
	Status  string       `json:"status,omitempty"`
	Player  []string     `json:"player"`
	Settled *models.User `json:"-"`
}

// StandResult is returned by Stand with the dealer's hand fully revealed.
// Settled is the wagering user paid out by this call, if any.
type StandResult struct {
	RoundID uuid.UUID    `json:"round_id"`
	DealID  uuid.UUID    `json:"deal_id"`
	Status  string       `json:"status"`
	Dealer  []string     `json:"dealer"`
	Settled *models.User `json:"-"`
}

// Round holds one table's live deal. ID names the table and stays fixed;
// every Start opens a new deal with its own id and action sequence.
// All methods are safe for concurrent use.
type Round struct {
	ID uuid.UUID

	mu         sync.Mutex
	dealID     uuid.UUID
	state      RoundState
	outcome    Outcome
	deck       *Deck
	playerHand []Card
	dealerHand []Card
	wager      *Wager

	startedAt  time.Time
	resolvedAt time.Time

	newDeck     DeckFactory
	clock       quartz.Clock
	publisher   ActionPublisher
	actionIndex int
}

// RoundOption customizes a Round at construction.
type RoundOption func(*Round)

// WithDeckFactory sets how each Start obtains its deck.
func WithDeckFactory(f DeckFactory) RoundOption {
	return func(r *Round) { r.newDeck = f }
}

func WithClock(c quartz.Clock) RoundOption {
	return func(r *Round) { r.clock = c }
}

// WithPublisher sends action records to p. A nil publisher disables publishing.
func WithPublisher(p ActionPublisher) RoundOption {
	return func(r *Round) { r.publisher = p }
}

// NewRound returns a round in the NotStarted state.
func NewRound(id uuid.UUID, opts ...RoundOption) *Round {
	r := &Round{
		ID:    id,
		state: NotStarted,
		clock: quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newDeck == nil {
		r.newDeck = ShuffledDeckFactory(0)
	}
	return r
}

// Start deals a fresh round from a new deck: player, player, dealer, dealer.
// Starting replaces any round in progress; an unresolved wager on it is forfeited.
// When user is non-nil and bet is positive the bet is taken before the round begins.
func (r *Round) Start(user *models.User, bet int) (*StartResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deck := r.newDeck()
	var player, dealer []Card
	for _, hand := range []*[]Card{&player, &player, &dealer, &dealer} {
		c, err := deck.Draw()
		if err != nil {
			return nil, fmt.Errorf("deal round %s: %w", r.ID, err)
		}
		*hand = append(*hand, c)
	}

	var wager *Wager
	if user != nil && bet > 0 {
		if err := user.Bet(bet); err != nil {
			return nil, err
		}
		wager = &Wager{User: user, Amount: bet}
	}

	if r.state == PlayerTurn || r.state == DealerTurn {
		r.logAction("round_abandon", map[string]interface{}{"state": r.state.String()})
	}

	r.dealID = uuid.New()
	r.actionIndex = 0
	r.deck = deck
	r.playerHand = player
	r.dealerHand = dealer
	r.wager = wager
	r.outcome = OutcomeNone
	r.state = PlayerTurn
	r.startedAt = r.clock.Now()
	r.resolvedAt = time.Time{}

	payload := map[string]interface{}{
		"player": DisplayHand(player, false),
		"dealer": DisplayHand(dealer, false),
	}
	if wager != nil {
		payload["bet"] = wager.Amount
	}
	r.logAction("round_start", payload)

	return &StartResult{
		RoundID: r.ID,
		DealID:  r.dealID,
		Player:  DisplayHand(player, false),
		Dealer:  DisplayHand(dealer, true),
	}, nil
}

// Hit draws one card for the player. A bust resolves the round.
func (r *Round) Hit() (*HitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != PlayerTurn {
		return nil, fmt.Errorf("hit in state %s: %w", r.state, ErrInvalidTransition)
	}

	c, err := r.deck.Draw()
	if err != nil {
		return nil, fmt.Errorf("hit round %s: %w", r.ID, err)
	}
	r.playerHand = append(r.playerHand, c)

	res := &HitResult{
		RoundID: r.ID,
		DealID:  r.dealID,
		Player:  DisplayHand(r.playerHand, false),
	}
	r.logAction("round_hit", map[string]interface{}{
		"card":  c.String(),
		"total": CalculateTotal(r.playerHand),
	})

	if IsBust(r.playerHand) {
		res.Settled = r.resolve(OutcomePlayerBusted)
		res.Status = string(OutcomePlayerBusted)
	}
	return res, nil
}

// Stand ends the player's turn. The dealer draws while under DealerStandsOn,
// then the round resolves.
func (r *Round) Stand() (*StandResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != PlayerTurn {
		return nil, fmt.Errorf("stand in state %s: %w", r.state, ErrInvalidTransition)
	}
	r.state = DealerTurn

	for CalculateTotal(r.dealerHand) < DealerStandsOn {
		c, err := r.deck.Draw()
		if err != nil {
			return nil, fmt.Errorf("dealer draw round %s: %w", r.ID, err)
		}
		r.dealerHand = append(r.dealerHand, c)
	}

	outcome := ResolveOutcome(CalculateTotal(r.dealerHand), CalculateTotal(r.playerHand))
	settled := r.resolve(outcome)

	return &StandResult{
		RoundID: r.ID,
		DealID:  r.dealID,
		Status:  string(outcome),
		Dealer:  DisplayHand(r.dealerHand, false),
		Settled: settled,
	}, nil
}

// resolve settles the wager and marks the round finished, returning the
// wagering user or nil. Lock must be held.
func (r *Round) resolve(outcome Outcome) *models.User {
	r.outcome = outcome
	r.state = Resolved
	r.resolvedAt = r.clock.Now()

	payload := map[string]interface{}{
		"status":       string(outcome),
		"player_total": CalculateTotal(r.playerHand),
		"dealer_total": CalculateTotal(r.dealerHand),
		"dealer":       DisplayHand(r.dealerHand, false),
	}
	if r.wager != nil {
		payout := outcome.Payout(r.wager.Amount)
		if payout > 0 {
			r.wager.User.Win(payout)
		}
		payload["payout"] = payout
		payload["chips"] = r.wager.User.Chips
	}

	log.WithFields(log.Fields{
		"round":  r.ID,
		"deal":   r.dealID,
		"status": outcome,
	}).Info("round resolved")
	r.logAction("round_end", payload)

	if r.wager == nil {
		return nil
	}
	return r.wager.User
}

// logAction publishes an action record asynchronously. Lock must be held.
func (r *Round) logAction(actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if r.publisher == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := cache.RoundActionRecord{
		RoundID:       r.dealID,
		TableID:       r.ID,
		ActionIndex:   r.actionIndex,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     r.clock.Now().UnixMilli(),
	}
	if r.wager != nil {
		rec.PlayerName = r.wager.User.Name
	}
	go func(p ActionPublisher, rec cache.RoundActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.PublishRoundAction(ctx, rec); err != nil {
			log.Warnf("failed to publish action %d for round %s: %v", rec.ActionIndex, rec.RoundID, err)
		}
	}(r.publisher, rec)
}

// DealID identifies the current deal, or uuid.Nil before the first Start.
func (r *Round) DealID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dealID
}

func (r *Round) State() RoundState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Outcome is OutcomeNone until the round resolves.
func (r *Round) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

// Wager returns the bet placed at Start, or nil.
func (r *Round) Wager() *Wager {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wager
}

// PlayerHand returns a copy of the player's cards.
func (r *Round) PlayerHand() []Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Card(nil), r.playerHand...)
}

// DealerHand returns a copy of the dealer's cards, hole card included.
func (r *Round) DealerHand() []Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Card(nil), r.dealerHand...)
}

// DeckRemaining is the number of undealt cards, or 0 before the first Start.
func (r *Round) DeckRemaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deck == nil {
		return 0
	}
	return r.deck.Len()
}

// Times reports when the current round started and resolved; zero values mean not yet.
func (r *Round) Times() (started, resolved time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt, r.resolvedAt
}
