// Package di wires the service's dependencies in construction order:
// database, store, event bus, engine, reliability services, then the
// scheduler with its jobs registered. All dependencies are injected via
// constructors; nothing reaches for globals.
package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalance/internal/category"
	"github.com/aristath/rebalance/internal/config"
	"github.com/aristath/rebalance/internal/engine"
	"github.com/aristath/rebalance/internal/events"
	"github.com/aristath/rebalance/internal/loader"
	"github.com/aristath/rebalance/internal/persistence"
	"github.com/aristath/rebalance/internal/reliability"
	"github.com/aristath/rebalance/internal/scheduler"
	"github.com/aristath/rebalance/internal/weights"
)

// Cron schedules for the background jobs. The batch runs nightly after
// market data settles; backup follows it; the simulation replay is weekly.
const (
	batchSchedule      = "0 0 2 * * *"
	backupSchedule     = "0 30 3 * * *"
	simulationSchedule = "0 0 4 * * 0"
)

// Container holds every constructed service.
type Container struct {
	DB    *persistence.DB
	Store *persistence.Store
	Bus   *events.Bus

	Tree   *category.Tree
	Engine *engine.Engine
	Loader *loader.Loader

	BackupService *reliability.BackupService
	HealthService *reliability.HealthService

	Scheduler *scheduler.Scheduler

	BatchRebalanceJob *scheduler.BatchRebalanceJob
	BackupJob         *scheduler.BackupJob
	SimulationJob     *scheduler.SimulationJob
}

// Wire constructs the full dependency graph.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := persistence.Open(filepath.Join(cfg.DataDir, "rebalance.db"))
	if err != nil {
		return nil, fmt.Errorf("open run-history database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run-history database: %w", err)
	}

	store := persistence.NewStore(db)
	bus := events.NewBus(log)

	tree := category.New()
	eng := engine.New(tree, cfg.NCNT, cfg.MXRT, cfg.Inflation, weights.MarketInputs{
		Today:     cfg.SPToday,
		LastClose: cfg.SPClose,
		High:      cfg.SPHigh,
	}, log)

	ldr := loader.New(cfg.InputDir, log)

	// Backup is optional: without a bucket the service is built with no
	// S3 client and reports itself disabled, no backup job is registered,
	// and the API reports backup as not configured.
	var backupSvc *reliability.BackupService
	if cfg.BackupBucket != "" {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.BackupBucket, "", "", log)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("configure backup client: %w", err)
		}
		backupSvc = reliability.NewBackupService(s3Client, db.Path(), cfg.BackupPrefix, bus, log)
	} else {
		backupSvc = reliability.NewBackupService(nil, db.Path(), cfg.BackupPrefix, bus, log)
	}

	healthSvc := reliability.NewHealthService(db, cfg.DataDir, log)

	sched := scheduler.New(log)
	batchJob := scheduler.NewBatchRebalanceJob(ldr, eng, store, bus, log)
	simulationJob := scheduler.NewSimulationJob(cfg.InputDir, cfg.SPHigh, ldr, log)

	if err := sched.AddJob(batchSchedule, batchJob); err != nil {
		db.Close()
		return nil, fmt.Errorf("register batch rebalance job: %w", err)
	}
	if err := sched.AddJob(simulationSchedule, simulationJob); err != nil {
		db.Close()
		return nil, fmt.Errorf("register simulation job: %w", err)
	}

	var backupJob *scheduler.BackupJob
	if backupSvc.Enabled() {
		backupJob = scheduler.NewBackupJob(backupSvc, log)
		if err := sched.AddJob(backupSchedule, backupJob); err != nil {
			db.Close()
			return nil, fmt.Errorf("register backup job: %w", err)
		}
	}

	return &Container{
		DB:                db,
		Store:             store,
		Bus:               bus,
		Tree:              tree,
		Engine:            eng,
		Loader:            ldr,
		BackupService:     backupSvc,
		HealthService:     healthSvc,
		Scheduler:         sched,
		BatchRebalanceJob: batchJob,
		BackupJob:         backupJob,
		SimulationJob:     simulationJob,
	}, nil
}

// Close releases everything the container owns.
func (c *Container) Close() error {
	return c.DB.Close()
}
