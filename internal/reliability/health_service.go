package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/rebalance/internal/persistence"
)

// HealthSnapshot is one point-in-time reading of host and database health.
type HealthSnapshot struct {
	Healthy bool `json:"healthy"`

	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`

	DatabaseOK    bool   `json:"database_ok"`
	DatabaseError string `json:"database_error,omitempty"`

	CheckedAt time.Time `json:"checked_at"`
}

// HealthService reads host resource usage and database integrity.
type HealthService struct {
	db      *persistence.DB
	dataDir string
	log     zerolog.Logger
}

// NewHealthService wires a HealthService against the run-history database
// and its data directory (for disk usage).
func NewHealthService(db *persistence.DB, dataDir string, log zerolog.Logger) *HealthService {
	return &HealthService{
		db:      db,
		dataDir: dataDir,
		log:     log.With().Str("component", "health_service").Logger(),
	}
}

// Snapshot collects CPU, memory, disk, and database health. Individual
// probe failures degrade the snapshot rather than failing it: a host
// without a readable disk stat still reports CPU and memory.
func (s *HealthService) Snapshot(ctx context.Context) HealthSnapshot {
	snap := HealthSnapshot{Healthy: true, CheckedAt: time.Now().UTC()}

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	} else if err != nil {
		s.log.Warn().Err(err).Msg("CPU probe failed")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vm.UsedPercent
	} else {
		s.log.Warn().Err(err).Msg("Memory probe failed")
	}

	if du, err := disk.Usage(s.dataDir); err == nil {
		snap.DiskPercent = du.UsedPercent
		if du.UsedPercent > 95 {
			snap.Healthy = false
		}
	} else {
		s.log.Warn().Err(err).Msg("Disk probe failed")
	}

	snap.DatabaseOK = true
	if err := s.db.HealthCheck(ctx); err != nil {
		snap.DatabaseOK = false
		snap.DatabaseError = err.Error()
		snap.Healthy = false
	}

	return snap
}
