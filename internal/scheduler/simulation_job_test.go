package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rebalance/internal/loader"
)

func floatPtr(v float64) *float64 { return &v }

func TestSimulationJob_SkipsWithoutHigh(t *testing.T) {
	dir := t.TempDir()
	job := NewSimulationJob(dir, nil, loader.New(dir, zerolog.Nop()), zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestSimulationJob_SkipsWithoutHistoryFile(t *testing.T) {
	dir := t.TempDir()
	job := NewSimulationJob(dir, floatPtr(5000), loader.New(dir, zerolog.Nop()), zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestSimulationJob_ReplaysCloses(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir)

	// Make the single portfolio carry an equity-target curve.
	require.NoError(t, os.WriteFile(filepath.Join(dir, loader.PortfoliosFile),
		[]byte("key,stock,bond,cash,real_estate,increase_at_zero\nsmith,60,40,0,0,0.2\n"), 0o644))

	history := "date,close\n"
	for _, c := range []string{"4100", "4150", "4200", "4180", "4250", "4300", "4280"} {
		history += "2026-01-01," + c + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sp_history.csv"), []byte(history), 0o644))

	job := NewSimulationJob(dir, floatPtr(5000), loader.New(dir, zerolog.Nop()), zerolog.Nop())
	assert.NoError(t, job.Run())
}
