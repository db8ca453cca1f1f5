package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/zenhabit/coach"
	"github.com/warp/zenhabit/config"
	"github.com/warp/zenhabit/metrics"
	"github.com/warp/zenhabit/persist"
	"github.com/warp/zenhabit/session"
	"github.com/warp/zenhabit/store/sqlite"
	"go.uber.org/zap"
)

// app is the wired session stack shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	session *session.Session
	coach   *coach.Coach
	remote  bool

	closers []func() error
}

// openApp opens storage, loads the state and starts the session.
func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	snapshots, err := a.openSnapshots()
	if err != nil {
		a.closeStores()
		return nil, err
	}
	remote, err := a.openRemote(snapshots)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.remote = remote != nil

	adapter := persist.NewAdapter(persist.Options{
		Snapshots: snapshots,
		Remote:    remote,
		Debounce:  cfg.Storage.Debounce,
		Year:      cfg.Tracker.Year,
		Logger:    logger,
		Metrics:   a.metrics,
	})
	a.session = session.New(ctx, session.Options{
		Adapter: adapter,
		Owner:   cfg.Remote.Owner,
		Logger:  logger,
		Metrics: a.metrics,
	})
	a.coach = coach.New(a.openAdvisor(ctx), cfg.Coach.Timeout, logger, a.metrics)

	logger.Info("tracker ready",
		zap.Int("year", cfg.Tracker.Year),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("path", cfg.Storage.Path),
		zap.Bool("remote", a.remote),
		zap.Bool("coach", a.coach.Available()))
	return a, nil
}

func (a *app) openSnapshots() (persist.Snapshotter, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := sqlite.New(a.cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot database: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return persist.NewFileSnapshotter(a.cfg.Storage.Path)
	}
}

// openRemote returns nil when remote mode is off. A remote DSN equal to
// the SQLite snapshot path shares the connection.
func (a *app) openRemote(snapshots persist.Snapshotter) (persist.RemoteStore, error) {
	if !a.cfg.Remote.Enabled {
		return nil, nil
	}
	if store, ok := snapshots.(*sqlite.Store); ok && a.cfg.Remote.DSN == a.cfg.Storage.Path {
		return store, nil
	}
	store, err := sqlite.New(a.cfg.Remote.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote database: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// openAdvisor returns nil when no API key is configured or the client
// can't be created; the coach then answers with its unavailable text.
func (a *app) openAdvisor(ctx context.Context) coach.Advisor {
	if a.cfg.Coach.APIKey == "" {
		return nil
	}
	advisor, err := coach.NewGeminiAdvisor(ctx, a.cfg.Coach.APIKey, a.cfg.Coach.Model)
	if err != nil {
		a.logger.Warn("coach disabled", zap.Error(err))
		return nil
	}
	return advisor
}

// Close drains the session, flushes the last state and closes storage.
func (a *app) Close(ctx context.Context) error {
	err := a.session.Close(ctx)
	if err != nil {
		a.logger.Error("failed to flush state", zap.Error(err))
	}
	return errors.Join(err, a.closeStores())
}

func (a *app) closeStores() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
