// cmd/historian/main.go drains round actions from the Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/cache"
	"github.com/jason-s-yu/blackjack/internal/database"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
)

type CLI struct {
	Queue      string        `help:"Redis list to drain." env:"HISTORIAN_QUEUE_NAME" default:"blackjack_actions"`
	BatchSize  int           `help:"Flush once this many actions are buffered." env:"HISTORIAN_BATCH_SIZE" default:"20"`
	FlushDelay time.Duration `help:"Flush buffered actions at least this often." env:"HISTORIAN_FLUSH_INTERVAL" default:"500ms"`
	Inactivity time.Duration `help:"Mark rounds abandoned after this long without actions." env:"ROUND_INACTIVITY_TIMEOUT" default:"10m"`
	LogLevel   string        `help:"Log level." env:"LOG_LEVEL" enum:"debug,info,warn,error" default:"info"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("blackjack-historian"),
		kong.Description("Persists blackjack round actions from Redis to PostgreSQL"),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(cli.run())
}

func (c *CLI) run() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if err := database.ConnectDB(); err != nil {
		return err
	}
	defer database.DB.Close()
	if err := cache.ConnectRedis(); err != nil {
		return err
	}
	defer cache.Rdb.Close()

	hs := NewHistorianService(cache.NewQueue(cache.Rdb, c.Queue), Config{
		BatchSize:  c.BatchSize,
		FlushDelay: c.FlushDelay,
		Inactivity: c.Inactivity,
	})
	hs.flush = func(ctx context.Context, recs []cache.RoundActionRecord) error {
		return database.InsertRoundActions(ctx, database.DB, recs)
	}
	hs.abandon = func(ctx context.Context, id uuid.UUID) error {
		return database.MarkRoundAbandoned(ctx, database.DB, id)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	hs.Run(ctx)
	return nil
}
