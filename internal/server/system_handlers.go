package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalance/internal/di"
	"github.com/aristath/rebalance/internal/scheduler"
)

// SystemHandlers serves health, status, backup, and manual job triggers.
type SystemHandlers struct {
	container *di.Container
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers over the DI container.
func NewSystemHandlers(container *di.Container, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container: container,
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleHealth handles GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.container.HealthService.Snapshot(r.Context())
	status := http.StatusOK
	if !snap.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, h.log, status, snap)
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.container.HealthService.Snapshot(r.Context())

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"health":         snap,
			"backup_enabled": h.container.BackupService.Enabled(),
			"jobs":           h.container.Scheduler.Statuses(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// trigger runs a job in the background and replies immediately; job
// progress is observable on the event stream.
func (h *SystemHandlers) trigger(w http.ResponseWriter, job scheduler.Job) {
	if job == nil {
		http.Error(w, "Job not configured", http.StatusConflict)
		return
	}
	go func() {
		if err := h.container.Scheduler.RunNow(job); err != nil {
			h.log.Error().Err(err).Str("job", job.Name()).Msg("Manually triggered job failed")
		}
	}()

	writeJSON(w, h.log, http.StatusAccepted, map[string]interface{}{
		"data": map[string]interface{}{
			"job":       job.Name(),
			"triggered": true,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleTriggerRebalance handles POST /api/system/jobs/rebalance
func (h *SystemHandlers) HandleTriggerRebalance(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, h.container.BatchRebalanceJob)
}

// HandleTriggerSimulation handles POST /api/system/jobs/simulation
func (h *SystemHandlers) HandleTriggerSimulation(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, h.container.SimulationJob)
}

// HandleTriggerBackup handles POST /api/system/jobs/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.container.BackupJob == nil {
		http.Error(w, "Backup not configured", http.StatusConflict)
		return
	}
	h.trigger(w, h.container.BackupJob)
}

// HandleListBackups handles GET /api/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if !h.container.BackupService.Enabled() {
		http.Error(w, "Backup not configured", http.StatusConflict)
		return
	}

	keys, err := h.container.BackupService.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		http.Error(w, "Failed to list backups", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"backups": keys,
			"count":   len(keys),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCreateBackup handles POST /api/backups
func (h *SystemHandlers) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if !h.container.BackupService.Enabled() {
		http.Error(w, "Backup not configured", http.StatusConflict)
		return
	}

	key, err := h.container.BackupService.BackupNow(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Backup failed")
		http.Error(w, "Backup failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"key": key,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}
