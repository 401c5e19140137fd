// Package app wires configuration, storage and the catalog pipeline together
// for the server and the CLI.
package app

import (
	"gorm.io/gorm"

	"traking-shop/internal/backoff"
	"traking-shop/internal/catalog"
	"traking-shop/internal/config"
	"traking-shop/internal/database"
	"traking-shop/internal/services/valorant"
	"traking-shop/internal/store"
)

type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Store       store.Store
	Client      *valorant.Client
	Importer    *catalog.Importer
	Implementer *catalog.Implementer
}

// New connects to the configured database and builds the pipeline
func New(cfg *config.Config) (*App, error) {
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return Build(cfg, db), nil
}

// Build assembles the pipeline around an already migrated database
func Build(cfg *config.Config, db *gorm.DB) *App {
	client := valorant.NewClient(cfg.ValorantAPIBase,
		valorant.WithUserAgent(cfg.ValorantUserAgent),
		valorant.WithTierCache(valorant.NewTierCache(cfg.TierCacheTTL)),
		valorant.WithRetryPolicy(backoff.Policy{Attempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay}),
	)

	st := store.New(db)
	gw := catalog.NewGateway(st, catalog.WithPause(cfg.ImportPause, cfg.ImportPauseEvery))
	sampler := catalog.NewSampler(nil)

	return &App{
		Config:      cfg,
		DB:          db,
		Store:       st,
		Client:      client,
		Importer:    catalog.NewImporter(client, gw),
		Implementer: catalog.NewImplementer(client, st, sampler, catalog.NewAssigner(st, gw)),
	}
}
