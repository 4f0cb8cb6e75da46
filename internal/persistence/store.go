package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/rebalance/internal/diagnostics"
	"github.com/aristath/rebalance/internal/domain"
	"github.com/aristath/rebalance/internal/engine"
)

// Store persists engine run results and reads them back for the server
// and TUI.
type Store struct {
	db *DB
}

// NewStore wraps an already-migrated DB.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// SaveRun records a completed portfolio run: one runs row, one
// account_results row per account (its proposed ticker values packed with
// msgpack), and one diagnostics row per diagnostic raised anywhere during
// the run.
func (s *Store) SaveRun(result engine.PortfolioResult, startedAt, finishedAt time.Time) error {
	return WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO runs (run_id, portfolio_key, started_at, finished_at) VALUES (?, ?, ?, ?)`,
			result.RunID, string(result.PortfolioKey), startedAt, finishedAt,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, outcome := range result.Accounts {
			blob, err := msgpack.Marshal(outcome.Result.Values)
			if err != nil {
				return fmt.Errorf("marshal account values for %+v: %w", outcome.AccountID, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO account_results (run_id, institution, account_number, status, residual, values_blob)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				result.RunID, outcome.AccountID.Institution, outcome.AccountID.AccountNumber,
				string(outcome.Result.Status), outcome.Result.Residual, blob,
			); err != nil {
				return fmt.Errorf("insert account result for %+v: %w", outcome.AccountID, err)
			}
			for _, d := range outcome.Result.Diagnostics {
				if err := insertDiagnostic(tx, result.RunID, d); err != nil {
					return err
				}
			}
		}

		for _, d := range result.Diagnostics {
			if err := insertDiagnostic(tx, result.RunID, d); err != nil {
				return err
			}
		}

		return nil
	})
}

func insertDiagnostic(tx *sql.Tx, runID string, d diagnostics.Diagnostic) error {
	var institution, accountNumber sql.NullString
	if d.AccountID != nil {
		institution = sql.NullString{String: d.AccountID.Institution, Valid: true}
		accountNumber = sql.NullString{String: d.AccountID.AccountNumber, Valid: true}
	}
	_, err := tx.Exec(
		`INSERT INTO diagnostics (run_id, kind, severity, message, portfolio_key, institution, account_number, leaf_key, symbol)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, string(d.Kind), string(d.Severity), d.Message,
		string(d.PortfolioKey), institution, accountNumber, d.LeafKey, string(d.Symbol),
	)
	if err != nil {
		return fmt.Errorf("insert diagnostic: %w", err)
	}
	return nil
}

// RunSummary is one row of run history, without the per-account detail.
type RunSummary struct {
	RunID        string
	PortfolioKey domain.PortfolioKey
	StartedAt    time.Time
	FinishedAt   time.Time
}

// ListRuns returns every recorded run for a portfolio, most recent first.
func (s *Store) ListRuns(ctx context.Context, portfolioKey domain.PortfolioKey) ([]RunSummary, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT run_id, portfolio_key, started_at, finished_at FROM runs WHERE portfolio_key = ? ORDER BY started_at DESC`,
		string(portfolioKey),
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var key string
		if err := rows.Scan(&r.RunID, &key, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.PortfolioKey = domain.PortfolioKey(key)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRecentRuns returns the most recent runs across all portfolios.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT run_id, portfolio_key, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var key string
		if err := rows.Scan(&r.RunID, &key, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.PortfolioKey = domain.PortfolioKey(key)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AccountResultRow is one account's stored outcome for a run.
type AccountResultRow struct {
	AccountID domain.AccountID
	Status    string
	Residual  float64
	Values    map[domain.Symbol]float64
}

// LoadAccountResults returns every account's outcome for one run.
func (s *Store) LoadAccountResults(ctx context.Context, runID string) ([]AccountResultRow, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT institution, account_number, status, residual, values_blob FROM account_results WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query account results: %w", err)
	}
	defer rows.Close()

	var out []AccountResultRow
	for rows.Next() {
		var row AccountResultRow
		var blob []byte
		if err := rows.Scan(&row.AccountID.Institution, &row.AccountID.AccountNumber, &row.Status, &row.Residual, &blob); err != nil {
			return nil, fmt.Errorf("scan account result row: %w", err)
		}
		if err := msgpack.Unmarshal(blob, &row.Values); err != nil {
			return nil, fmt.Errorf("unmarshal account values for %+v: %w", row.AccountID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LoadDiagnostics returns every diagnostic raised during one run.
func (s *Store) LoadDiagnostics(ctx context.Context, runID string) ([]diagnostics.Diagnostic, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT kind, severity, message, portfolio_key, institution, account_number, leaf_key, symbol FROM diagnostics WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []diagnostics.Diagnostic
	for rows.Next() {
		var d diagnostics.Diagnostic
		var portfolioKey, leafKey, symbol string
		var institution, accountNumber sql.NullString
		if err := rows.Scan(&d.Kind, &d.Severity, &d.Message, &portfolioKey, &institution, &accountNumber, &leafKey, &symbol); err != nil {
			return nil, fmt.Errorf("scan diagnostic row: %w", err)
		}
		d.PortfolioKey = domain.PortfolioKey(portfolioKey)
		d.LeafKey = leafKey
		d.Symbol = domain.Symbol(symbol)
		if institution.Valid {
			d.AccountID = &domain.AccountID{Institution: institution.String, AccountNumber: accountNumber.String}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
