package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalance/internal/engine"
	"github.com/aristath/rebalance/internal/events"
	"github.com/aristath/rebalance/internal/loader"
	"github.com/aristath/rebalance/internal/persistence"
)

// BatchRebalanceJob loads the CSV inputs, rebalances every portfolio in
// the dataset, persists each run, and emits progress events. It backs
// both the nightly cron schedule and the manual API trigger.
type BatchRebalanceJob struct {
	loader *loader.Loader
	engine *engine.Engine
	store  *persistence.Store
	bus    *events.Bus
	log    zerolog.Logger
}

// NewBatchRebalanceJob wires the job.
func NewBatchRebalanceJob(l *loader.Loader, e *engine.Engine, store *persistence.Store, bus *events.Bus, log zerolog.Logger) *BatchRebalanceJob {
	return &BatchRebalanceJob{
		loader: l,
		engine: e,
		store:  store,
		bus:    bus,
		log:    log.With().Str("job", "batch_rebalance").Logger(),
	}
}

// Name implements Job.
func (j *BatchRebalanceJob) Name() string { return "batch_rebalance" }

// Run implements Job. Portfolios are independent (the engine shares no
// mutable state between them), so a failed portfolio run does not stop
// the batch.
func (j *BatchRebalanceJob) Run() error {
	j.bus.Emit(events.RunStarted, "scheduler", nil)

	dataset, err := j.loader.Load()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to load dataset")
		return err
	}

	for _, d := range dataset.Diagnostics {
		j.bus.Emit(events.DiagnosticRaised, "loader", map[string]interface{}{
			"kind":    string(d.Kind),
			"message": d.Message,
		})
	}

	var firstErr error
	for _, input := range dataset.PortfolioInputs() {
		j.bus.Emit(events.PortfolioStarted, "scheduler", map[string]interface{}{
			"portfolio": string(input.Portfolio.Key),
		})

		startedAt := time.Now()
		result := j.engine.RunPortfolio(input)
		finishedAt := time.Now()

		if err := j.store.SaveRun(result, startedAt, finishedAt); err != nil {
			j.log.Error().Err(err).
				Str("portfolio", string(input.Portfolio.Key)).
				Msg("Failed to persist run")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		for _, outcome := range result.Accounts {
			j.bus.Emit(events.AccountRebalanced, "engine", map[string]interface{}{
				"run_id":      result.RunID,
				"portfolio":   string(input.Portfolio.Key),
				"institution": outcome.AccountID.Institution,
				"account":     outcome.AccountID.AccountNumber,
				"status":      string(outcome.Result.Status),
				"residual":    outcome.Result.Residual,
			})
		}

		j.bus.Emit(events.PortfolioCompleted, "scheduler", map[string]interface{}{
			"run_id":    result.RunID,
			"portfolio": string(input.Portfolio.Key),
			"accounts":  len(result.Accounts),
		})

		j.log.Info().
			Str("run_id", result.RunID).
			Str("portfolio", string(input.Portfolio.Key)).
			Int("accounts", len(result.Accounts)).
			Dur("duration", finishedAt.Sub(startedAt)).
			Msg("Portfolio rebalanced")
	}

	j.bus.Emit(events.RunCompleted, "scheduler", nil)
	return firstErr
}
