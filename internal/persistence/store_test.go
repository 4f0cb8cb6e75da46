package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rebalance/internal/diagnostics"
	"github.com/aristath/rebalance/internal/domain"
	"github.com/aristath/rebalance/internal/engine"
	"github.com/aristath/rebalance/internal/rebalance"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return NewStore(db)
}

func TestSaveRun_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	accountID := domain.AccountID{Institution: "vanguard", AccountNumber: "1001"}
	result := engine.PortfolioResult{
		RunID:        "run-1",
		PortfolioKey: "smith",
		Accounts: []engine.AccountOutcome{
			{
				AccountID: accountID,
				Result: rebalance.AccountResult{
					Status:   rebalance.StatusOK,
					Residual: 0,
					Values:   map[domain.Symbol]float64{"VTSAX": 6000, "VBTLX": 4000},
					Diagnostics: []diagnostics.Diagnostic{
						diagnostics.Infeasibility(accountID, "cash.uncategorized", "no members bound"),
					},
				},
			},
		},
		Diagnostics: []diagnostics.Diagnostic{
			diagnostics.CurveWarning("smith", "increase-at-bear too small"),
		},
	}

	started := time.Now().Add(-time.Second)
	require.NoError(t, store.SaveRun(result, started, time.Now()))

	runs, err := store.ListRuns(ctx, "smith")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)

	recent, err := store.ListRecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	accounts, err := store.LoadAccountResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, accountID, accounts[0].AccountID)
	assert.Equal(t, "ok", accounts[0].Status)
	assert.Equal(t, 6000.0, accounts[0].Values["VTSAX"])

	diags, err := store.LoadDiagnostics(ctx, "run-1")
	require.NoError(t, err)
	// One account-level plus one run-level diagnostic.
	require.Len(t, diags, 2)
}

func TestListRuns_EmptyForUnknownPortfolio(t *testing.T) {
	store := openTestStore(t)

	runs, err := store.ListRuns(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, runs)
}
