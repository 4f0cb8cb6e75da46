package reliability

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rebalance/internal/persistence"
)

func TestHealthService_Snapshot(t *testing.T) {
	dir := t.TempDir()
	db, err := persistence.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())

	svc := NewHealthService(db, dir, zerolog.Nop())
	snap := svc.Snapshot(context.Background())

	assert.True(t, snap.DatabaseOK)
	assert.Empty(t, snap.DatabaseError)
	assert.False(t, snap.CheckedAt.IsZero())
}

func TestHealthService_SnapshotReportsClosedDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := persistence.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	require.NoError(t, db.Close())

	svc := NewHealthService(db, dir, zerolog.Nop())
	snap := svc.Snapshot(context.Background())

	assert.False(t, snap.DatabaseOK)
	assert.False(t, snap.Healthy)
	assert.NotEmpty(t, snap.DatabaseError)
}

func TestBackupService_DisabledWithoutClient(t *testing.T) {
	svc := NewBackupService(nil, "/tmp/none.db", "rebalance", nil, zerolog.Nop())

	assert.False(t, svc.Enabled())
	_, err := svc.BackupNow(context.Background())
	assert.Error(t, err)
}
