package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// playerWinsDeck: player K,Q (20), dealer 6,6 then draws 5 (17).
var playerWinsDeck = []game.Card{
	game.NewCard(game.Heart, game.King), game.NewCard(game.Heart, game.Queen),
	game.NewCard(game.Spade, game.Six), game.NewCard(game.Club, game.Six),
	game.NewCard(game.Diamond, game.Five), game.NewCard(game.Club, game.King),
}

func newTestServer(t *testing.T, deck ...game.Card) (*BlackjackServer, *database.MemoryUserStore) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	factory := game.ShuffledDeckFactory(1)
	if len(deck) > 0 {
		factory = game.StackedDeckFactory(deck...)
	}
	users := database.NewMemoryUserStore()
	s := NewBlackjackServer(logger, game.NewRoundStore(game.WithDeckFactory(factory)), users, 0)
	return s, users
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body=%s", w.Body.String())
	return v
}

func TestStartHandler(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Routes()

	w := do(t, h, http.MethodGet, "/start", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	res := decode[game.StartResult](t, w)
	assert.Equal(t, game.DefaultTableID, res.RoundID)
	assert.Len(t, res.Player, 2)
	require.Len(t, res.Dealer, 2)
	assert.Equal(t, "hidden", res.Dealer[0])
	assert.Contains(t, res.Dealer[1], " of ")
}

func TestHitAndStandFlow(t *testing.T) {
	s, _ := newTestServer(t, playerWinsDeck...)
	h := s.Routes()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/start", "").Code)

	w := do(t, h, http.MethodGet, "/stand", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[game.StandResult](t, w)
	assert.Equal(t, "Player wins!", res.Status)
	assert.Equal(t, []string{"6 of SPADE", "6 of CLUB", "5 of DIAMOND"}, res.Dealer)

	w = do(t, h, http.MethodGet, "/stand", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "invalid round transition")
}

func TestHitHandlerBust(t *testing.T) {
	s, _ := newTestServer(t, playerWinsDeck...)
	h := s.Routes()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/start", "").Code)

	// K,Q + 5 = 25
	w := do(t, h, http.MethodGet, "/hit", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[game.HitResult](t, w)
	assert.Equal(t, "Player busted!", res.Status)
	assert.Len(t, res.Player, 3)

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodGet, "/hit", "").Code)
}

func TestHitHandlerNoStatusWithoutBust(t *testing.T) {
	s, _ := newTestServer(t,
		game.NewCard(game.Heart, game.Two), game.NewCard(game.Heart, game.Three),
		game.NewCard(game.Spade, game.Ten), game.NewCard(game.Club, game.Seven),
		game.NewCard(game.Diamond, game.Four),
	)
	h := s.Routes()
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/start", "").Code)

	w := do(t, h, http.MethodGet, "/hit", "")
	require.Equal(t, http.StatusOK, w.Code)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "status")
	assert.Len(t, raw["player"], 3)
}

func TestRoundIDs(t *testing.T) {
	s, _ := newTestServer(t, playerWinsDeck...)
	h := s.Routes()

	id := uuid.New()
	w := do(t, h, http.MethodGet, "/start?round_id="+id.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[game.StartResult](t, w).RoundID)

	// the default table is independent of named rounds
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodGet, "/stand", "").Code)

	w = do(t, h, http.MethodPost, "/stand", `{"round_id":"`+id.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, id, decode[game.StandResult](t, w).RoundID)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/hit?round_id="+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/hit?round_id=nope", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/hit", "{").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodDelete, "/hit", "").Code)
}

func TestStartWithWager(t *testing.T) {
	s, users := newTestServer(t, playerWinsDeck...)
	h := s.Routes()
	ctx := context.Background()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/start?name=alice&bet=100", "").Code)
	u, err := users.GetUserByName(ctx, "alice")
	require.NoError(t, err, "a bet creates the user on demand")
	assert.Equal(t, 900, u.Chips)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/stand", "").Code)
	u, err = users.GetUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1100, u.Chips)
	assert.Equal(t, 1100, u.HighestAmount)
}

func TestStartWagerErrors(t *testing.T) {
	s, users := newTestServer(t, playerWinsDeck...)
	h := s.Routes()
	require.NoError(t, users.SaveUser(context.Background(), models.NewUser("bob", 50)))

	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodGet, "/start?name=bob&bet=51", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/start?bet=10", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/start?name=bob&bet=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/start?name=bob&bet=ten", "").Code)

	u, err := users.GetUserByName(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 50, u.Chips)
}

func TestSettleKeepsWinnerWhenTableIsRedealt(t *testing.T) {
	s, users := newTestServer(t, playerWinsDeck...)
	ctx := context.Background()

	_, err := s.StartRound(ctx, RoundRequest{Name: "alice", Bet: 100})
	require.NoError(t, err)
	round := s.Rounds.GetOrCreateRound(game.DefaultTableID)

	res, err := round.Stand()
	require.NoError(t, err)
	require.Equal(t, "Player wins!", res.Status)

	// bob takes the table before alice's payout is written
	_, err = s.StartRound(ctx, RoundRequest{Name: "bob", Bet: 50})
	require.NoError(t, err)
	require.NoError(t, s.settle(ctx, round.ID, res.Settled))

	alice, err := users.GetUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1100, alice.Chips)
	assert.Equal(t, 1100, alice.HighestAmount)

	bob, err := users.GetUserByName(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 950, bob.Chips)
}

func TestHitBustPersistsLoss(t *testing.T) {
	s, users := newTestServer(t, playerWinsDeck...)
	h := s.Routes()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/start?name=alice&bet=100", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/hit", "").Code)

	u, err := users.GetUserByName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 900, u.Chips)
	assert.Equal(t, 1000, u.HighestAmount)
}

func TestStartTrimsName(t *testing.T) {
	s, users := newTestServer(t, playerWinsDeck...)
	h := s.Routes()
	ctx := context.Background()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/join", `{"name":"alice"}`).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/start", `{"name":" alice ","bet":100}`).Code)

	u, err := users.GetUserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 900, u.Chips)

	_, err = users.GetUserByName(ctx, " alice ")
	assert.ErrorIs(t, err, database.ErrUserNotFound)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusForError(game.ErrDeckExhausted))
	assert.Equal(t, http.StatusConflict, statusForError(models.ErrInsufficientChips))
	assert.Equal(t, http.StatusBadRequest, statusForError(models.ErrInvalidBet))
	assert.Equal(t, http.StatusNotFound, statusForError(errRoundNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusForError(assert.AnError))
}
