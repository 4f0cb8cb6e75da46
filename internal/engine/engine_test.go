package engine

import (
	"testing"
	"time"

	"github.com/aristath/rebalance/internal/category"
	"github.com/aristath/rebalance/internal/domain"
	"github.com/aristath/rebalance/internal/weights"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

// Closure pass across two accounts in one portfolio: the first account
// fully funds its declared stock share, and the closure pass on the
// last account must force 100% into bond to reach the portfolio's
// 60/40 target.
func TestRunPortfolio_ClosureForcesSecondAccountIntoBond(t *testing.T) {
	tree := category.New()
	log := zerolog.Nop()
	e := New(tree, 20, 2, 3.0, weights.MarketInputs{}, log)

	accountA := domain.AccountID{Institution: "broker", AccountNumber: "A"}
	accountB := domain.AccountID{Institution: "broker", AccountNumber: "B"}

	tickers := map[domain.Symbol]domain.Ticker{
		"STOCKFUND": {Symbol: "STOCKFUND", Kind: domain.TickerFundRebalanceable, Subcodes: []string{"S", "D", "L", "B"}},
		"BONDFUND":  {Symbol: "BONDFUND", Kind: domain.TickerFundRebalanceable, Subcodes: []string{"T", "Y"}},
	}

	stockOverride := domain.WeightOverride{
		"stock.domestic": 100, "stock.foreign": 0,
		"stock.domestic.large": 100, "stock.domestic.not_large": 0,
		"stock.domestic.large.growth_and_value": 100, "stock.domestic.large.growth_or_value": 0,
	}
	bondOverride := domain.WeightOverride{
		"bond.short": 100, "bond.corporate": 0, "bond.foreign": 0, "bond.government": 0,
		"bond.high_yield": 0, "bond.inflation_protected": 0, "bond.mortgage": 0, "bond.uncategorized": 0,
	}

	in := PortfolioInput{
		Portfolio: domain.Portfolio{Key: "p1", Weights: domain.Level1Weights{Stock: 60, Bond: 40}},
		Accounts: []domain.Account{
			{ID: accountA, Order: 0, Weights: domain.Level1Weights{Stock: 100}, Override: stockOverride, Value: floatPtr(6000)},
			{ID: accountB, Order: 1, Weights: domain.Level1Weights{Bond: 100}, Override: bondOverride, Value: floatPtr(4000)},
		},
		Tickers: tickers,
		Holdings: map[domain.AccountID][]domain.Holding{
			accountA: {{AccountID: accountA, Symbol: "STOCKFUND", Weight: 1}},
			accountB: {{AccountID: accountB, Symbol: "BONDFUND", Weight: 1}},
		},
	}

	result := e.RunPortfolio(in)
	require.Len(t, result.Accounts, 2)

	byID := map[domain.AccountID]float64{}
	for _, outcome := range result.Accounts {
		for symbol, v := range outcome.Result.Values {
			_ = symbol
			byID[outcome.AccountID] += v
		}
	}

	assert.InDelta(t, 6000, byID[accountA], 0.01)
	assert.InDelta(t, 4000, byID[accountB], 0.01)
}

type pinnedClock struct{ t time.Time }

func (c pinnedClock) Now() time.Time { return c.t }

// A single-account portfolio whose account has no observed value is
// synthesized via the CPI-Annuity kind before rebalancing.
func TestRunPortfolio_SynthesizesMissingAccountValue(t *testing.T) {
	tree := category.New()
	log := zerolog.Nop()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := New(tree, 20, 2, 3.0, weights.MarketInputs{}, log, WithClock(pinnedClock{now}))

	accountID := domain.AccountID{Institution: "annuity-co", AccountNumber: "1"}
	tickers := map[domain.Symbol]domain.Ticker{
		"MMFUND": {Symbol: "MMFUND", Kind: domain.TickerFundRebalanceable, Subcodes: []string{"K", "Z"}},
	}

	in := PortfolioInput{
		Portfolio: domain.Portfolio{
			Key:                  "p2",
			MortalityDate:        now.AddDate(1, 0, 0),
			MonthlyAnnuityIncome: 1000,
		},
		Accounts: []domain.Account{
			{ID: accountID, Order: 0, Weights: domain.Level1Weights{Cash: 100}, Synthesizer: domain.SynthCPIAnnuity},
		},
		Tickers: tickers,
		Holdings: map[domain.AccountID][]domain.Holding{
			accountID: {{AccountID: accountID, Symbol: "MMFUND", Weight: 1}},
		},
	}

	result := e.RunPortfolio(in)
	require.Len(t, result.Accounts, 1)
	assert.InDelta(t, 12000, result.Accounts[0].Result.Values["MMFUND"], 1)
}
