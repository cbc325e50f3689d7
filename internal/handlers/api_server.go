// internal/handlers/api_server.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/middleware"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	errRoundNotFound = errors.New("round not found")
	errBadRequest    = errors.New("bad request")
)

// BlackjackServer holds the live rounds and the user ledger shared by the HTTP and WebSocket handlers.
type BlackjackServer struct {
	Logger       *logrus.Logger
	Rounds       *game.RoundStore
	Users        database.UserStore
	DefaultChips int
}

func NewBlackjackServer(logger *logrus.Logger, rounds *game.RoundStore, users database.UserStore, defaultChips int) *BlackjackServer {
	if defaultChips <= 0 {
		defaultChips = models.DefaultChips
	}
	return &BlackjackServer{
		Logger:       logger,
		Rounds:       rounds,
		Users:        users,
		DefaultChips: defaultChips,
	}
}

// Routes registers every endpoint behind the logging middleware.
func (s *BlackjackServer) Routes() http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(s.Logger)

	mux.Handle("/join", logged(JoinHandler(s)))
	mux.Handle("/start", logged(StartHandler(s)))
	mux.Handle("/hit", logged(HitHandler(s)))
	mux.Handle("/stand", logged(StandHandler(s)))
	mux.Handle("/round/ws", logged(RoundWSHandler(s)))
	return mux
}

// RoundRequest carries the optional parameters of a round action.
// An empty RoundID addresses the default table.
type RoundRequest struct {
	RoundID string `json:"round_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Bet     int    `json:"bet,omitempty"`
}

func (req RoundRequest) roundID() (uuid.UUID, error) {
	if req.RoundID == "" {
		return game.DefaultTableID, nil
	}
	id, err := uuid.Parse(req.RoundID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid round_id", errBadRequest)
	}
	return id, nil
}

func (s *BlackjackServer) lookupRound(req RoundRequest) (*game.Round, error) {
	id, err := req.roundID()
	if err != nil {
		return nil, err
	}
	if id == game.DefaultTableID {
		return s.Rounds.GetOrCreateRound(id), nil
	}
	r, ok := s.Rounds.GetRound(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errRoundNotFound, id)
	}
	return r, nil
}

// StartRound deals a new round, taking the wager from the named user when a bet is given.
func (s *BlackjackServer) StartRound(ctx context.Context, req RoundRequest) (*game.StartResult, error) {
	id, err := req.roundID()
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Bet < 0 {
		return nil, fmt.Errorf("%w: %w", errBadRequest, models.ErrInvalidBet)
	}
	if req.Bet > 0 && req.Name == "" {
		return nil, fmt.Errorf("%w: a bet requires a name", errBadRequest)
	}

	var user *models.User
	if req.Bet > 0 {
		user, _, err = database.LoadOrCreateUser(ctx, s.Users, req.Name, s.DefaultChips)
		if err != nil {
			return nil, err
		}
	}

	round := s.Rounds.GetOrCreateRound(id)
	res, err := round.Start(user, req.Bet)
	if err != nil {
		return nil, err
	}
	if user != nil {
		if err := s.Users.SaveUser(ctx, user); err != nil {
			return nil, err
		}
	}
	s.Logger.WithFields(logrus.Fields{"round": id, "name": req.Name, "bet": req.Bet}).Debug("round started")
	return res, nil
}

func (s *BlackjackServer) Hit(ctx context.Context, req RoundRequest) (*game.HitResult, error) {
	round, err := s.lookupRound(req)
	if err != nil {
		return nil, err
	}
	res, err := round.Hit()
	if err != nil {
		return nil, err
	}
	if err := s.settle(ctx, round.ID, res.Settled); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *BlackjackServer) Stand(ctx context.Context, req RoundRequest) (*game.StandResult, error) {
	round, err := s.lookupRound(req)
	if err != nil {
		return nil, err
	}
	res, err := round.Stand()
	if err != nil {
		return nil, err
	}
	if err := s.settle(ctx, round.ID, res.Settled); err != nil {
		return nil, err
	}
	return res, nil
}

// settle persists the user paid out by a resolving hit or stand. The user
// comes from the result, so a Start racing on the same table cannot swap it.
func (s *BlackjackServer) settle(ctx context.Context, roundID uuid.UUID, settled *models.User) error {
	if settled == nil {
		return nil
	}
	if err := s.Users.SaveUser(ctx, settled); err != nil {
		return fmt.Errorf("failed to settle round %s: %w", roundID, err)
	}
	return nil
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, models.ErrInvalidBet):
		return http.StatusBadRequest
	case errors.Is(err, errRoundNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, models.ErrInsufficientChips),
		errors.Is(err, game.ErrDeckExhausted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
