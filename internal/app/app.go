package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	msql "tracklite/internal/adapter/mysql"
	"tracklite/internal/config"
	"tracklite/internal/migrate"
	"tracklite/internal/session"
)

// App wires the store adapter and the session manager.
type App struct {
	log      *slog.Logger
	store    *msql.Store
	sessions *session.Manager
}

func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	loc, err := time.LoadLocation(cfg.Track.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TRACK_TZ %q: %w", cfg.Track.Timezone, err)
	}

	// Run migrations before opening the store for use.
	if err := migrate.Run(ctx, cfg.MySQL.DSN, log); err != nil {
		return nil, err
	}
	store, err := msql.NewStore(ctx, cfg.MySQL.DSN, log)
	if err != nil {
		return nil, err
	}

	return &App{
		log:      log,
		store:    store,
		sessions: session.NewManager(log, store, loc),
	}, nil
}

// Sessions exposes the sign-in registry to the presentation layer.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Close releases the store connection.
func (a *App) Close() error { return a.store.Close() }
