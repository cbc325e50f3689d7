package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/blackjack/internal/models"
)

// ErrUserNotFound is returned when no record exists for a name.
var ErrUserNotFound = errors.New("user not found")

// UserStore is the keyed chip ledger.
type UserStore interface {
	GetUserByName(ctx context.Context, name string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
}

// LoadOrCreateUser returns the stored record for name, creating it with chips
// when absent. created reports whether a new record was written.
func LoadOrCreateUser(ctx context.Context, store UserStore, name string, chips int) (u *models.User, created bool, err error) {
	u, err = store.GetUserByName(ctx, name)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, fmt.Errorf("failed to load user %q: %w", name, err)
	}

	u = models.NewUser(name, chips)
	if err := store.SaveUser(ctx, u); err != nil {
		return nil, false, fmt.Errorf("failed to create user %q: %w", name, err)
	}
	return u, true, nil
}

// PostgresUserStore keeps users in the users table.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

func (s *PostgresUserStore) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	var u models.User
	q := `SELECT name, chips, highest_amount FROM users WHERE name=$1`
	err := s.pool.QueryRow(ctx, q, name).Scan(&u.Name, &u.Chips, &u.HighestAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveUser upserts u. The stored highest_amount never decreases.
func (s *PostgresUserStore) SaveUser(ctx context.Context, u *models.User) error {
	q := `
	INSERT INTO users (name, chips, highest_amount)
	VALUES ($1, $2, $3)
	ON CONFLICT (name) DO UPDATE
	SET chips = EXCLUDED.chips,
	    highest_amount = GREATEST(users.highest_amount, EXCLUDED.highest_amount)
	`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, u.Name, u.Chips, u.HighestAmount)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// MemoryUserStore is a process-local UserStore for tests and database-less runs.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]models.User)}
}

// GetUserByName returns a copy; callers must SaveUser to persist changes.
func (s *MemoryUserStore) GetUserByName(_ context.Context, name string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) SaveUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := *u
	if prev, ok := s.users[u.Name]; ok && prev.HighestAmount > rec.HighestAmount {
		rec.HighestAmount = prev.HighestAmount
	}
	s.users[u.Name] = rec
	return nil
}
