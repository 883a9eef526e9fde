package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/ledger/internal/classifier"
	"github.com/mtlprog/ledger/internal/config"
	"github.com/mtlprog/ledger/internal/database"
	"github.com/mtlprog/ledger/internal/resolver"
	"github.com/mtlprog/ledger/internal/returns"
	"github.com/mtlprog/ledger/internal/source"
	"github.com/mtlprog/ledger/internal/store"
	"github.com/mtlprog/ledger/internal/valuation"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	app := &cli.App{
		Name:  "ledger",
		Usage: "personal portfolio ledger: price resolution, valuation and returns",
		Commands: []*cli.Command{
			serveCommand(cfg),
			resolveCommand(cfg),
			valueCommand(cfg),
			historyCommand(cfg),
			returnsCommand(cfg),
			diagnoseCommand(cfg),
			exportCommand(cfg),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// deps is everything a command needs, wired from one pool.
type deps struct {
	pool      *pgxpool.Pool
	store     *store.PgStore
	resolver  *resolver.Resolver
	valuation *valuation.Service
	returns   *returns.Service
	fx        *source.FXClient
}

// connect opens the database, applies migrations and wires the services.
// The caller must call close on the returned deps.
func connect(ctx context.Context, cfg config.Config) (*deps, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	st := store.NewPgStore(pool)
	sources := resolver.Sources{
		Primary:   source.NewBinanceClient(cfg.BinanceURL),
		Secondary: source.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey),
		Equities:  source.NewYahooClient(),
	}
	cls := classifier.New(cfg.ExtraCryptoSymbols, cfg.ExtraStablecoins)
	res := resolver.New(st, sources, cls, resolver.Config{
		RetryCount:  cfg.RetryCount,
		RetryDelay:  cfg.RetryDelay,
		PacingDelay: cfg.PacingDelay,
	})

	return &deps{
		pool:      pool,
		store:     st,
		resolver:  res,
		valuation: valuation.NewService(st),
		returns:   returns.NewService(st),
		fx:        source.NewFXClient(cfg.FXCacheTTL),
	}, nil
}

func (d *deps) close() { d.pool.Close() }

// withDeps adapts a command action that needs the wired services.
func withDeps(cfg config.Config, fn func(c *cli.Context, d *deps) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		d, err := connect(c.Context, cfg)
		if err != nil {
			return err
		}
		defer d.close()
		return fn(c, d)
	}
}
