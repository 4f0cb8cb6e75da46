package rebalance

import (
	"github.com/aristath/rebalance/internal/diagnostics"
	"github.com/aristath/rebalance/internal/domain"
)

// CategoryTotals is the sum, per level-1 category, of proposed values
// already placed by earlier accounts in a portfolio.
type CategoryTotals struct {
	Stock, Bond, Cash, RealEstate float64
}

// ClosureOverride computes the last account's level-1 weight override
//: for each category, the weight is set proportional to
// what's still needed to hit the portfolio's declared target, or zero
// (with a diagnostic) if the target was already overshot by earlier
// accounts. The bool return reports whether an override was produced at
// all; when false the caller must leave the account's own weights alone.
func ClosureOverride(portfolioKey domain.PortfolioKey, lastAccountID domain.AccountID, portfolioBalanceableValue float64, portfolioWeights domain.Level1Weights, already CategoryTotals) (domain.Level1Weights, bool, []diagnostics.Diagnostic) {
	weightSum := portfolioWeights.Sum()
	if weightSum == 0 {
		// With no declared level-1 weights there is nothing to close
		// against; the leaves' holding-weights govern instead.
		return domain.Level1Weights{}, false, nil
	}

	var diags []diagnostics.Diagnostic
	residual := func(portfolioWeight float64) float64 {
		target := portfolioBalanceableValue * portfolioWeight / weightSum
		return target
	}

	stockTarget := residual(portfolioWeights.Stock) - already.Stock
	bondTarget := residual(portfolioWeights.Bond) - already.Bond
	cashTarget := residual(portfolioWeights.Cash) - already.Cash
	realEstateTarget := residual(portfolioWeights.RealEstate) - already.RealEstate

	clamp := func(name string, v float64) float64 {
		if v < 0 {
			diags = append(diags, diagnostics.PortfolioOvershoot(portfolioKey, lastAccountID, "portfolio-level target "+name+" was already overshot by earlier accounts"))
			return 0
		}
		return v
	}

	return domain.Level1Weights{
		Stock:      clamp("stock", stockTarget),
		Bond:       clamp("bond", bondTarget),
		Cash:       clamp("cash", cashTarget),
		RealEstate: clamp("real_estate", realEstateTarget),
	}, true, diags
}
