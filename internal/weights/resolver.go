// Package weights implements the five-overlay chain that produces
// per-account effective weights over the category tree.
package weights

import (
	"github.com/aristath/rebalance/internal/category"
	"github.com/aristath/rebalance/internal/diagnostics"
	"github.com/aristath/rebalance/internal/domain"
	"github.com/aristath/rebalance/internal/market"
	"gonum.org/v1/gonum/floats"
)

// MarketInputs carries the optional scalar market readings that drive
// overlays 4 and 5 (equity adjustments are active iff the
// relevant pair of values is set).
type MarketInputs struct {
	Today     *float64
	LastClose *float64
	High      *float64
}

// Resolve runs the five built-in overlays for one account and returns the
// effective weight of every node in the tree. The closure
// pass (overlay 6, only for the last account in a portfolio) is applied
// separately via ApplyLevel1Override, since it needs results from every
// other account in the portfolio first.
func Resolve(tree *category.Tree, portfolio domain.Portfolio, account domain.Account, mkt MarketInputs) (map[category.NodeKey]float64, []diagnostics.Diagnostic) {
	effective := defaults(tree)

	applyLevel1(effective, account.Weights)

	if account.Override != nil {
		applyOverride(effective, account.Override)
	}

	var diags []diagnostics.Diagnostic

	if mkt.Today != nil && mkt.LastClose != nil {
		ratio := market.CloseAdjustRatio(*mkt.Today, *mkt.LastClose)
		effective[category.KeyStock] *= ratio
	}

	if portfolio.IncreaseAtZero != nil && mkt.High != nil && mkt.Today != nil {
		level1Sum := floats.Sum([]float64{
			effective[category.KeyStock], effective[category.KeyBond],
			effective[category.KeyCash], effective[category.KeyRealEstate],
		})
		stockFraction := 0.0
		if level1Sum != 0 {
			stockFraction = effective[category.KeyStock] / level1Sum
		}
		result := market.TargetStockFraction(stockFraction, *portfolio.IncreaseAtZero, portfolio.IncreaseAtBear, *mkt.High, *mkt.Today)
		effective[category.KeyStock] = result.StockFraction * level1Sum
		if result.CurveWarning {
			diags = append(diags, diagnostics.CurveWarning(portfolio.Key, "increase-at-bear is small relative to increase-at-zero; equity-target curve may not be monotone"))
		}
	}

	return effective, diags
}

// defaults returns a fresh copy of the tree's built-in default weights,
// keyed by node.
func defaults(tree *category.Tree) map[category.NodeKey]float64 {
	out := make(map[category.NodeKey]float64, len(tree.Nodes()))
	for _, n := range tree.Nodes() {
		out[n.Key] = n.DefaultWeight
	}
	return out
}

// applyLevel1 replaces the four level-1 weights (overlay 2).
func applyLevel1(effective map[category.NodeKey]float64, w domain.Level1Weights) {
	effective[category.KeyStock] = w.Stock
	effective[category.KeyBond] = w.Bond
	effective[category.KeyCash] = w.Cash
	effective[category.KeyRealEstate] = w.RealEstate
}

// applyOverride replaces every weight named in the override (overlay 3);
// nodes the override doesn't mention keep whatever the prior
// overlays set.
func applyOverride(effective map[category.NodeKey]float64, override domain.WeightOverride) {
	for k, v := range override {
		effective[category.NodeKey(k)] = v
	}
}

// ApplyLevel1Override replaces the four level-1 weights a final time —
// used by the closure pass for the last account in a portfolio.
func ApplyLevel1Override(effective map[category.NodeKey]float64, w domain.Level1Weights) {
	applyLevel1(effective, w)
}
