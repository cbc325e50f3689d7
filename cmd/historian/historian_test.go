package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/cache"
	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu        sync.Mutex
	flushed   [][]cache.RoundActionRecord
	abandoned []uuid.UUID
	fail      bool
}

func (f *fakeSink) flush(_ context.Context, recs []cache.RoundActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("db down")
	}
	f.flushed = append(f.flushed, recs)
	return nil
}

func (f *fakeSink) abandon(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, id)
	return nil
}

var start = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestHistorian(t *testing.T, batchSize int) (*HistorianService, *fakeSink, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(start)

	sink := &fakeSink{}
	hs := NewHistorianService(cache.NewQueue(nil, "test_actions"), Config{
		BatchSize:  batchSize,
		Inactivity: 10 * time.Minute,
	})
	hs.clock = clock
	hs.flush = sink.flush
	hs.abandon = sink.abandon
	return hs, sink, clock
}

func action(id uuid.UUID, index int, actionType string) cache.RoundActionRecord {
	return cache.RoundActionRecord{RoundID: id, ActionIndex: index, ActionType: actionType}
}

func TestRecordFlushesFullBatch(t *testing.T) {
	hs, sink, _ := newTestHistorian(t, 2)
	ctx := context.Background()
	id := uuid.New()

	hs.record(ctx, action(id, 1, "round_start"))
	assert.Empty(t, sink.flushed)

	hs.record(ctx, action(id, 2, "round_hit"))
	require.Len(t, sink.flushed, 1)
	assert.Len(t, sink.flushed[0], 2)
	assert.Equal(t, 1, sink.flushed[0][0].ActionIndex)

	hs.flushBatch(ctx)
	assert.Len(t, sink.flushed, 1, "an empty batch is not flushed")
}

func TestFlushFailureKeepsBatch(t *testing.T) {
	hs, sink, _ := newTestHistorian(t, 10)
	ctx := context.Background()
	id := uuid.New()

	hs.record(ctx, action(id, 1, "round_start"))
	sink.fail = true
	hs.flushBatch(ctx)
	assert.Empty(t, sink.flushed)

	hs.record(ctx, action(id, 2, "round_hit"))
	sink.fail = false
	hs.flushBatch(ctx)
	require.Len(t, sink.flushed, 1)
	require.Len(t, sink.flushed[0], 2)
	assert.Equal(t, 1, sink.flushed[0][0].ActionIndex)
	assert.Equal(t, 2, sink.flushed[0][1].ActionIndex)
}

func TestSweepInactiveMarksAbandoned(t *testing.T) {
	hs, sink, clock := newTestHistorian(t, 10)
	ctx := context.Background()
	idle, finished, replaced, active := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	hs.record(ctx, action(idle, 1, "round_start"))
	hs.record(ctx, action(finished, 1, "round_start"))
	hs.record(ctx, action(finished, 2, database.RoundEndAction))
	hs.record(ctx, action(replaced, 1, "round_start"))
	hs.record(ctx, action(replaced, 2, database.RoundAbandonAction))

	clock.Set(start.Add(9 * time.Minute))
	hs.record(ctx, action(active, 1, "round_start"))

	clock.Set(start.Add(11 * time.Minute))
	hs.sweepInactive(ctx)

	assert.Equal(t, []uuid.UUID{idle}, sink.abandoned)
	require.Len(t, sink.flushed, 1, "pending actions land before the status update")
	assert.Len(t, sink.flushed[0], 6)

	hs.sweepInactive(ctx)
	assert.Len(t, sink.abandoned, 1, "a round is only abandoned once")
}
