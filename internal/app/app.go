// Package app wires the application's components together: secret
// store, local database, remote client, tracker and sync engine are
// constructed once here and handed to commands fully assembled.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/kinpoint/kinpoint/internal/config"
	"github.com/kinpoint/kinpoint/internal/remote"
	"github.com/kinpoint/kinpoint/internal/secrets"
	"github.com/kinpoint/kinpoint/internal/store"
	kinsync "github.com/kinpoint/kinpoint/internal/sync"
	"github.com/kinpoint/kinpoint/internal/tracker"
)

// App holds every long-lived component for one process.
type App struct {
	Config  *config.Config
	Secrets *secrets.Store
	Store   *store.Store
	Remote  *remote.Client
	Tracker *tracker.Tracker
	Engine  kinsync.Engine

	logger *log.Logger
}

// New constructs the component graph. Migrations run here, so a
// returned App always sees the current schema. provider supplies
// position fixes for the tracker.
func New(cfg *config.Config, provider tracker.Provider, logger *log.Logger) (*App, error) {
	sec, err := secrets.Open(cfg.SecretsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open secret store: %w", err)
	}

	db, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	rc := remote.New(sec, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
	if cfg.APIURL != "" {
		if err := rc.SetBaseURL(cfg.APIURL); err != nil {
			db.Close()
			return nil, fmt.Errorf("invalid api url: %w", err)
		}
	}

	trackerCfg := tracker.DefaultConfig()
	trackerCfg.Interval = cfg.TrackInterval
	trackerCfg.Distance = cfg.TrackDistance
	trackerCfg.Logger = logger

	tr, err := tracker.New(provider, rc, sec, trackerCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}

	engine := kinsync.New(rc, db, sec, tr, logger)

	return &App{
		Config:  cfg,
		Secrets: sec,
		Store:   db,
		Remote:  rc,
		Tracker: tr,
		Engine:  engine,
		logger:  logger,
	}, nil
}

// Close stops the tracker and releases the database.
func (a *App) Close() error {
	if err := a.Tracker.StopBackground(); err != nil {
		a.logger.Printf("Failed to stop tracker: %v", err)
	}
	return a.Store.Close()
}

// CreateFamily creates a family remotely and mirrors the returned rows
// into the local cache so reads see them before the next sync pass.
func (a *App) CreateFamily(ctx context.Context, name string) (*remote.CreateFamilyResult, error) {
	res, err := a.Remote.CreateFamily(ctx, name)
	if err != nil {
		return nil, err
	}

	// A failed mirror is not fatal: the next pass delivers the same
	// rows from the server.
	if err := a.Store.InsertFamily(ctx, res.Family.Family); err != nil {
		a.logger.Printf("Failed to mirror family locally: %v", err)
	} else if err := a.Store.InsertFamilyMember(ctx, res.FamilyMember); err != nil {
		a.logger.Printf("Failed to mirror family member locally: %v", err)
	}

	return res, nil
}

// Purge removes all local data and ends the session: tracking stops,
// every cached table empties, the watermark rewinds and the session
// tokens are cleared.
func (a *App) Purge(ctx context.Context) error {
	if err := a.Tracker.StopBackground(); err != nil {
		return fmt.Errorf("failed to stop tracking: %w", err)
	}
	if err := a.Store.Purge(); err != nil {
		return fmt.Errorf("failed to purge database: %w", err)
	}
	if err := a.Engine.Reset(); err != nil {
		return fmt.Errorf("failed to reset sync state: %w", err)
	}
	if err := a.Remote.SignOut(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}
