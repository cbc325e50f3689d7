// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jason-s-yu/blackjack/internal/cache"
	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// CLI flags fall back to the environment, which may be populated from .env.
type CLI struct {
	Port         string `help:"Port to listen on." env:"PORT" default:"8080"`
	DefaultChips int    `help:"Chips granted to a user on first join." env:"DEFAULT_CHIPS" default:"1000"`
	Seed         int64  `help:"Shuffle seed; 0 seeds from the clock." env:"SHUFFLE_SEED" default:"0"`
	Store        string `help:"User ledger backend." env:"USER_STORE" enum:"postgres,memory" default:"postgres"`
	Redis        bool   `help:"Publish round actions to the Redis historian queue." env:"REDIS_ENABLED"`
	LogLevel     string `help:"Log level." env:"LOG_LEVEL" enum:"debug,info,warn,error" default:"info"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack-server"),
		kong.Description("Blackjack game server"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(cli.run())
}

func (c *CLI) run() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logger := logrus.New()
	logger.SetLevel(level)
	// the game package logs through the standard logger
	logrus.SetLevel(level)

	users, closeUsers, err := c.openUserStore()
	if err != nil {
		return err
	}
	defer closeUsers()

	opts := []game.RoundOption{game.WithDeckFactory(game.ShuffledDeckFactory(c.Seed))}
	if c.Redis {
		if err := cache.ConnectRedis(); err != nil {
			return err
		}
		defer cache.Rdb.Close()
		opts = append(opts, game.WithPublisher(cache.NewQueue(cache.Rdb, "")))
	}

	srv := handlers.NewBlackjackServer(logger, game.NewRoundStore(opts...), users, c.DefaultChips)
	server := &http.Server{
		Addr:              ":" + c.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s (store=%s, redis=%t)", server.Addr, c.Store, c.Redis)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (c *CLI) openUserStore() (database.UserStore, func(), error) {
	if c.Store == "memory" {
		return database.NewMemoryUserStore(), func() {}, nil
	}
	if err := database.ConnectDB(); err != nil {
		return nil, nil, err
	}
	return database.NewPostgresUserStore(database.DB), database.DB.Close, nil
}
