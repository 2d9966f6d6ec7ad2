// Package app wires configuration into the catalog, storage and progress
// registry shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conatuslab/conatuslab/internal/curriculum"
	"github.com/conatuslab/conatuslab/internal/platform/config"
	"github.com/conatuslab/conatuslab/internal/progress"
	"github.com/conatuslab/conatuslab/internal/resources"
	"github.com/conatuslab/conatuslab/internal/storage"
)

// App holds the long-lived dependencies built from configuration.
type App struct {
	Catalog   *curriculum.Catalog
	Resources *resources.Directory
	Storage   storage.Store
	Registry  *progress.Registry
}

// Open loads the catalog and resources, connects storage and builds the
// progress registry.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	cat, err := loadCatalog(cfg.CurriculumPath)
	if err != nil {
		return nil, err
	}
	dir, err := resources.Default()
	if err != nil {
		return nil, err
	}
	skills, err := progress.ParseSkillSource(cfg.Progress.SkillSource)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Driver, err)
	}
	slog.Info("storage ready", "driver", cfg.Storage.Driver)

	var events progress.EventLogger = progress.NopEventLogger{}
	if cfg.Progress.EventsEnabled {
		pg, ok := store.(*storage.PostgresStore)
		if !ok {
			store.Close()
			return nil, fmt.Errorf("progress events require the postgres storage driver")
		}
		events = progress.NewPostgresEventLogger(pg.DB().Pool)
		slog.Info("progress events enabled")
	}

	reg := progress.NewRegistry(progress.Options{
		Catalog:  cat,
		Storage:  store,
		Key:      cfg.Progress.StorageKey,
		Location: cfg.Location(),
		Events:   events,
		Skills:   skills,
	}, cfg.Progress.MaxProfiles)

	return &App{
		Catalog:   cat,
		Resources: dir,
		Storage:   store,
		Registry:  reg,
	}, nil
}

// Close releases the storage connection.
func (a *App) Close() error {
	return a.Storage.Close()
}

func loadCatalog(dir string) (*curriculum.Catalog, error) {
	if dir == "" {
		return curriculum.Default()
	}
	slog.Info("loading curriculum from directory", "path", dir)
	return curriculum.LoadDir(dir)
}
