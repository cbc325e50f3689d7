package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/blackjack/internal/cache"
)

// Action types that close a deal's round row.
const (
	RoundEndAction     = "round_end"
	RoundAbandonAction = "round_abandon"
)

// InsertRoundActions writes a batch of action records in a single transaction.
func InsertRoundActions(ctx context.Context, pool *pgxpool.Pool, recs []cache.RoundActionRecord) error {
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertRoundActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertRoundActionTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert %d round actions: %w", len(recs), err)
	}
	return nil
}

// insertRoundActionTx upserts the deal's round row, inserts the action and,
// for RoundEndAction or RoundAbandonAction, closes the round.
func insertRoundActionTx(ctx context.Context, tx pgx.Tx, rec cache.RoundActionRecord) error {
	upsertRoundQ := `
		INSERT INTO rounds (id, table_id, status, start_time)
		VALUES ($1, $2, 'in_progress', $3)
		ON CONFLICT (id) DO NOTHING
	`
	at := time.UnixMilli(rec.Timestamp)
	if _, err := tx.Exec(ctx, upsertRoundQ, rec.RoundID, rec.TableID, at); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO round_actions (
			round_id, action_index, player_name, action_type, action_payload, action_time
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		ON CONFLICT (round_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.RoundID, rec.ActionIndex, rec.PlayerName, rec.ActionType, jsonPayload, at,
	)
	if err != nil {
		return err
	}

	var status string
	switch rec.ActionType {
	case RoundEndAction:
		status = "completed"
	case RoundAbandonAction:
		status = "abandoned"
	default:
		return nil
	}
	finalizeQ := `
		UPDATE rounds
		SET status = $2, end_time = $3
		WHERE id = $1 AND status = 'in_progress'
	`
	_, err = tx.Exec(ctx, finalizeQ, rec.RoundID, status, at)
	return err
}

// MarkRoundAbandoned flags a round still in progress as abandoned.
func MarkRoundAbandoned(ctx context.Context, pool *pgxpool.Pool, roundID uuid.UUID) error {
	q := `
		UPDATE rounds
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, roundID)
		return err
	})
}
