package rebalance

import (
	"testing"

	"github.com/aristath/rebalance/internal/category"
	"github.com/aristath/rebalance/internal/domain"
	"github.com/aristath/rebalance/internal/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickerMap(tickers ...domain.Ticker) map[domain.Symbol]domain.Ticker {
	out := make(map[domain.Symbol]domain.Ticker, len(tickers))
	for _, t := range tickers {
		out[t.Symbol] = t
	}
	return out
}

// Trivial case: one leaf, one ticker, full allocation.
func TestSplit_SingleTickerTakesFullAmount(t *testing.T) {
	tree := category.New()
	accountID := domain.AccountID{Institution: "broker", AccountNumber: "1"}
	tickers := tickerMap(domain.Ticker{Symbol: "MMFUND", Kind: domain.TickerFundRebalanceable, Subcodes: []string{"K", "Z"}})
	holdings := []domain.Holding{{AccountID: accountID, Symbol: "MMFUND", Weight: 1}}

	leafMembers, diags := BuildLeafMembers(accountID, tree, tickers, holdings)
	require.Empty(t, diags)

	account := domain.Account{ID: accountID, Weights: domain.Level1Weights{Cash: 100}}
	effective, _ := weights.Resolve(tree, domain.Portfolio{}, account, weights.MarketInputs{})

	result := Split(accountID, tree, effective, leafMembers, 10000, 20, 2)
	assert.Equal(t, StatusOK, result.Status)
	assert.InDelta(t, 10000, result.Values["MMFUND"], 0.01)
	assert.InDelta(t, 0, result.Residual, 0.01)
}

// stock=50/bond=50 with one ticker on each side splits 5000/5000.
func TestSplit_EvenLevel1WeightsSplitEvenly(t *testing.T) {
	tree := category.New()
	accountID := domain.AccountID{Institution: "broker", AccountNumber: "2"}
	tickers := tickerMap(
		domain.Ticker{Symbol: "STOCKFUND", Kind: domain.TickerFundRebalanceable, Subcodes: []string{"S", "D", "L", "B"}},
		domain.Ticker{Symbol: "BONDFUND", Kind: domain.TickerFundRebalanceable, Subcodes: []string{"T", "Y"}},
	)
	holdings := []domain.Holding{
		{AccountID: accountID, Symbol: "STOCKFUND", Weight: 1},
		{AccountID: accountID, Symbol: "BONDFUND", Weight: 1},
	}
	leafMembers, diags := BuildLeafMembers(accountID, tree, tickers, holdings)
	require.Empty(t, diags)

	account := domain.Account{ID: accountID, Weights: domain.Level1Weights{Stock: 50, Bond: 50}}
	effective, _ := weights.Resolve(tree, domain.Portfolio{}, account, weights.MarketInputs{})

	result := Split(accountID, tree, effective, leafMembers, 10000, 20, 2)
	assert.InDelta(t, 5000, result.Values["STOCKFUND"], 0.01)
	assert.InDelta(t, 5000, result.Values["BONDFUND"], 0.01)
}

// One ETF whose share rounding fits the amount exactly.
func TestSplit_RoundingExactFit(t *testing.T) {
	tree := category.New()
	accountID := domain.AccountID{Institution: "broker", AccountNumber: "3"}
	tickers := tickerMap(domain.Ticker{Symbol: "ETF1", Kind: domain.TickerETF, Rounding: 5, Subcodes: []string{"K", "Z"}})
	holdings := []domain.Holding{{AccountID: accountID, Symbol: "ETF1", Weight: 1, Price: 100}}
	leafMembers, diags := BuildLeafMembers(accountID, tree, tickers, holdings)
	require.Empty(t, diags)

	account := domain.Account{ID: accountID, Weights: domain.Level1Weights{Cash: 100}}
	effective, _ := weights.Resolve(tree, domain.Portfolio{}, account, weights.MarketInputs{})

	result := Split(accountID, tree, effective, leafMembers, 10000, 20, 2)
	assert.InDelta(t, 10000, result.Values["ETF1"], 0.01)
	assert.InDelta(t, 0, result.Residual, 0.01)
}

// Rounding with residual pushed up to a money-market leaf in a
// different branch of the tree.
func TestSplit_ResidualAbsorbedAcrossLeaves(t *testing.T) {
	tree := category.New()
	accountID := domain.AccountID{Institution: "broker", AccountNumber: "4"}
	tickers := tickerMap(
		domain.Ticker{Symbol: "ETF1", Kind: domain.TickerETF, Rounding: 5, Subcodes: []string{"S", "D", "L", "B"}},
		domain.Ticker{Symbol: "MMFUND", Kind: domain.TickerFundRebalanceable, Subcodes: []string{"K", "Z"}},
	)
	holdings := []domain.Holding{
		{AccountID: accountID, Symbol: "ETF1", Weight: 1, Price: 100},
		{AccountID: accountID, Symbol: "MMFUND", Weight: 1},
	}
	leafMembers, diags := BuildLeafMembers(accountID, tree, tickers, holdings)
	require.Empty(t, diags)

	// Weights chosen so the ETF's stock leaf gets the full amount and any
	// leftover from its rounding must be picked up by the cash leaf.
	account := domain.Account{
		ID:      accountID,
		Weights: domain.Level1Weights{Stock: 100},
		Override: domain.WeightOverride{
			string(category.KeyStockDomestic):                        100,
			string(category.KeyStockForeign):                         0,
			string(category.KeyStockDomesticLarge):                   100,
			string(category.KeyStockDomesticNotLarge):                0,
			string(category.KeyStockDomesticLarge) + ".growth_and_value": 100,
			string(category.KeyStockDomesticLarge) + ".growth_or_value":  0,
		},
	}
	effective, _ := weights.Resolve(tree, domain.Portfolio{}, account, weights.MarketInputs{})

	result := Split(accountID, tree, effective, leafMembers, 10050, 20, 2)
	assert.InDelta(t, 10000, result.Values["ETF1"], 0.01)
	assert.InDelta(t, 50, result.Values["MMFUND"], 0.01)
	assert.InDelta(t, 0, result.Residual, 0.01)
}

// Minimum investment: two tickers m=5000 each, 8000 available,
// exactly one gets funded.
func TestSplit_MinimumInvestment(t *testing.T) {
	tree := category.New()
	accountID := domain.AccountID{Institution: "broker", AccountNumber: "5"}
	tickers := tickerMap(
		domain.Ticker{Symbol: "FUNDA", Kind: domain.TickerFundRebalanceable, MinInvestment: 5000, Subcodes: []string{"K", "Z"}},
		domain.Ticker{Symbol: "FUNDB", Kind: domain.TickerFundRebalanceable, MinInvestment: 5000, Subcodes: []string{"K", "Z"}},
	)
	holdings := []domain.Holding{
		{AccountID: accountID, Symbol: "FUNDA", Weight: 1},
		{AccountID: accountID, Symbol: "FUNDB", Weight: 1},
	}
	leafMembers, diags := BuildLeafMembers(accountID, tree, tickers, holdings)
	require.Empty(t, diags)

	account := domain.Account{ID: accountID, Weights: domain.Level1Weights{Cash: 100}}
	effective, _ := weights.Resolve(tree, domain.Portfolio{}, account, weights.MarketInputs{})

	result := Split(accountID, tree, effective, leafMembers, 8000, 20, 2)
	total := result.Values["FUNDA"] + result.Values["FUNDB"]
	assert.InDelta(t, 8000, total, 0.01)
	assert.True(t, result.Values["FUNDA"] == 0 || result.Values["FUNDB"] == 0)
}

func TestClosureOverride_SingleAccountPortfolioIsNoOp(t *testing.T) {
	portfolioWeights := domain.Level1Weights{Stock: 60, Bond: 40}
	override, ok, diags := ClosureOverride("p1", domain.AccountID{}, 10000, portfolioWeights, CategoryTotals{})
	require.True(t, ok)
	require.Empty(t, diags)
	assert.InDelta(t, 6000, override.Stock, 0.01)
	assert.InDelta(t, 4000, override.Bond, 0.01)
}

// Closure: two-account portfolio, stock=60/bond=40. First account
// (all stock) already placed its share; closure forces the second
// account entirely into bond.
func TestClosureOverride_ForcesBondAfterStockFilled(t *testing.T) {
	portfolioWeights := domain.Level1Weights{Stock: 60, Bond: 40}
	already := CategoryTotals{Stock: 6000}
	override, ok, diags := ClosureOverride("p1", domain.AccountID{Institution: "b", AccountNumber: "2"}, 10000, portfolioWeights, already)
	require.True(t, ok)
	require.Empty(t, diags)
	assert.InDelta(t, 0, override.Stock, 0.01)
	assert.InDelta(t, 4000, override.Bond, 0.01)
}

func TestClosureOverride_OvershootDiagnosesAndZeroes(t *testing.T) {
	portfolioWeights := domain.Level1Weights{Stock: 60, Bond: 40}
	already := CategoryTotals{Stock: 8000}
	override, ok, diags := ClosureOverride("p1", domain.AccountID{Institution: "b", AccountNumber: "2"}, 10000, portfolioWeights, already)
	require.True(t, ok)
	require.Len(t, diags, 1)
	assert.Equal(t, 0.0, override.Stock)
}
