package scheduler

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalance/internal/loader"
	"github.com/aristath/rebalance/internal/market"
)

// Smoothing window for the replayed close series.
const simulationSMAPeriod = 5

// SimulationJob replays a historical S&P close series through the
// hyperbolic equity-target curve of every portfolio that has one,
// reporting the range of target stock fractions the curve would have
// produced. The series lives in sp_history.csv (date,close) next to the
// other inputs; the job is a no-op when the file is absent.
type SimulationJob struct {
	inputDir string
	spHigh   *float64
	loader   *loader.Loader
	log      zerolog.Logger
}

// NewSimulationJob wires the job.
func NewSimulationJob(inputDir string, spHigh *float64, l *loader.Loader, log zerolog.Logger) *SimulationJob {
	return &SimulationJob{
		inputDir: inputDir,
		spHigh:   spHigh,
		loader:   l,
		log:      log.With().Str("job", "simulation").Logger(),
	}
}

// Name implements Job.
func (j *SimulationJob) Name() string { return "simulation" }

// Run implements Job.
func (j *SimulationJob) Run() error {
	if j.spHigh == nil {
		j.log.Info().Msg("SP_HIGH not set; skipping simulation")
		return nil
	}

	closes, err := j.readCloses()
	if err != nil {
		if os.IsNotExist(err) {
			j.log.Info().Msg("No sp_history.csv; skipping simulation")
			return nil
		}
		return err
	}
	if len(closes) < simulationSMAPeriod {
		return fmt.Errorf("sp_history.csv has %d closes, need at least %d", len(closes), simulationSMAPeriod)
	}

	dataset, err := j.loader.Load()
	if err != nil {
		return err
	}

	for _, p := range dataset.Portfolios {
		if p.IncreaseAtZero == nil {
			continue
		}

		weightSum := p.Weights.Sum()
		if weightSum == 0 {
			continue
		}
		stockFraction := p.Weights.Stock / weightSum

		minFraction, maxFraction := 1.0, 0.0
		warned := false
		for window := simulationSMAPeriod; window <= len(closes); window++ {
			smoothed, err := market.SmoothLatest(closes[:window], simulationSMAPeriod)
			if err != nil {
				return err
			}
			result := market.TargetStockFraction(stockFraction, *p.IncreaseAtZero, p.IncreaseAtBear, *j.spHigh, smoothed)
			if result.StockFraction < minFraction {
				minFraction = result.StockFraction
			}
			if result.StockFraction > maxFraction {
				maxFraction = result.StockFraction
			}
			warned = warned || result.CurveWarning
		}

		j.log.Info().
			Str("portfolio", string(p.Key)).
			Float64("base_stock_fraction", stockFraction).
			Float64("min_target_fraction", minFraction).
			Float64("max_target_fraction", maxFraction).
			Bool("curve_warning", warned).
			Int("days", len(closes)-simulationSMAPeriod+1).
			Msg("Simulated equity-target curve over historical closes")
	}

	return nil
}

// readCloses parses sp_history.csv (date,close) in file order.
func (j *SimulationJob) readCloses() ([]float64, error) {
	f, err := os.Open(filepath.Join(j.inputDir, "sp_history.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read sp_history.csv header: %w", err)
	}
	closeIdx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "close") {
			closeIdx = i
		}
	}
	if closeIdx < 0 {
		return nil, fmt.Errorf("sp_history.csv has no close column")
	}

	var closes []float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return closes, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read sp_history.csv: %w", err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[closeIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse sp_history.csv close %q: %w", record[closeIdx], err)
		}
		closes = append(closes, v)
	}
}
