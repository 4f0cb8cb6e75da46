package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalance/internal/reliability"
)

// How many timestamped database snapshots to keep offsite.
const backupKeep = 14

// BackupJob snapshots the run-history database to the configured bucket
// and rotates old snapshots.
type BackupJob struct {
	backup *reliability.BackupService
	log    zerolog.Logger
}

// NewBackupJob wires the job.
func NewBackupJob(backup *reliability.BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backup: backup,
		log:    log.With().Str("job", "backup").Logger(),
	}
}

// Name implements Job.
func (j *BackupJob) Name() string { return "backup" }

// Run implements Job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Minute)
	defer cancel()

	key, err := j.backup.BackupNow(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Str("key", key).Msg("Database backed up")

	if err := j.backup.Rotate(ctx, backupKeep); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
