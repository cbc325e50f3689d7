package main

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/cache"
	"github.com/jason-s-yu/blackjack/internal/database"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// popTimeout bounds each BLPop so cancellation and flush ticks are noticed.
const popTimeout = 3 * time.Second

type Config struct {
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration
}

// HistorianService batches round actions popped from the queue and marks
// deals abandoned once they go quiet without a round_end or round_abandon.
type HistorianService struct {
	queue   *cache.Queue
	clock   quartz.Clock
	flush   func(ctx context.Context, recs []cache.RoundActionRecord) error
	abandon func(ctx context.Context, roundID uuid.UUID) error

	batchSize  int
	flushDelay time.Duration
	inactivity time.Duration

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time

	batchMu sync.Mutex
	batch   []cache.RoundActionRecord
}

func NewHistorianService(queue *cache.Queue, cfg Config) *HistorianService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = 10 * time.Minute
	}
	return &HistorianService{
		queue:        queue,
		clock:        quartz.NewReal(),
		batchSize:    cfg.BatchSize,
		flushDelay:   cfg.FlushDelay,
		inactivity:   cfg.Inactivity,
		lastActivity: make(map[uuid.UUID]time.Time),
		batch:        make([]cache.RoundActionRecord, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is still buffered.
func (hs *HistorianService) Run(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hs.inactivityLoop(gctx)
		return nil
	})
	g.Go(func() error {
		hs.readLoop(gctx)
		return nil
	})

	log.Infof("blackjack-historian started, draining %q", hs.queue.Name())
	_ = g.Wait()

	// the outer ctx is gone; give the final flush its own deadline
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hs.flushBatch(flushCtx)
	log.Info("blackjack-historian shutting down")
}

func (hs *HistorianService) readLoop(ctx context.Context) {
	ticker := hs.clock.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.flushBatch(ctx)
		default:
			rec, err := hs.queue.PopRoundAction(ctx, popTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Errorf("pop round action: %v", err)
				continue
			}
			if rec == nil {
				continue
			}
			hs.record(ctx, *rec)
		}
	}
}

// record tracks activity for the round and buffers the action.
func (hs *HistorianService) record(ctx context.Context, rec cache.RoundActionRecord) {
	hs.activityMu.Lock()
	switch rec.ActionType {
	case database.RoundEndAction, database.RoundAbandonAction:
		delete(hs.lastActivity, rec.RoundID)
	default:
		hs.lastActivity[rec.RoundID] = hs.clock.Now()
	}
	hs.activityMu.Unlock()

	hs.batchMu.Lock()
	hs.batch = append(hs.batch, rec)
	full := len(hs.batch) >= hs.batchSize
	hs.batchMu.Unlock()

	if full {
		hs.flushBatch(ctx)
	}
}

// flushBatch hands the buffered actions to the sink. A failed batch is put
// back at the front so nothing is lost before the next attempt.
func (hs *HistorianService) flushBatch(ctx context.Context) {
	hs.batchMu.Lock()
	if len(hs.batch) == 0 {
		hs.batchMu.Unlock()
		return
	}
	pending := make([]cache.RoundActionRecord, len(hs.batch))
	copy(pending, hs.batch)
	hs.batch = hs.batch[:0]
	hs.batchMu.Unlock()

	if err := hs.flush(ctx, pending); err != nil {
		log.Errorf("flush %d round actions: %v", len(pending), err)
		hs.batchMu.Lock()
		hs.batch = append(pending, hs.batch...)
		hs.batchMu.Unlock()
		return
	}
	log.Debugf("flushed %d round actions", len(pending))
}

func (hs *HistorianService) inactivityLoop(ctx context.Context) {
	ticker := hs.clock.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.sweepInactive(ctx)
		}
	}
}

// sweepInactive marks every round idle past the threshold as abandoned.
func (hs *HistorianService) sweepInactive(ctx context.Context) {
	now := hs.clock.Now()
	var stale []uuid.UUID

	hs.activityMu.Lock()
	for id, last := range hs.lastActivity {
		if now.Sub(last) > hs.inactivity {
			stale = append(stale, id)
			delete(hs.lastActivity, id)
		}
	}
	hs.activityMu.Unlock()

	if len(stale) == 0 {
		return
	}
	// actions for these rounds must land before the status update
	hs.flushBatch(ctx)
	for _, id := range stale {
		if err := hs.abandon(ctx, id); err != nil {
			log.Errorf("failed to mark round %v abandoned: %v", id, err)
			continue
		}
		log.Infof("marked round %v abandoned after %v of inactivity", id, hs.inactivity)
	}
}
