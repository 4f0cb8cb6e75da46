// Package engine orchestrates one portfolio's rebalance run: it resolves
// any synthesized account values, then walks the accounts in declared
// order, applying the weight-resolver overlay chain,
// classifying tickers, splitting each account's total down the category
// tree, and running the closure pass on the last account. Each stage is
// a named, sequential function, not a monolithic loop body.
package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalance/internal/allocator"
	"github.com/aristath/rebalance/internal/category"
	"github.com/aristath/rebalance/internal/diagnostics"
	"github.com/aristath/rebalance/internal/domain"
	"github.com/aristath/rebalance/internal/rebalance"
	"github.com/aristath/rebalance/internal/synth"
	"github.com/aristath/rebalance/internal/weights"
)

// Engine holds the immutable per-run configuration: tuning parameters
// and the category tree, read once at construction and never mutated
// for the duration of a run.
type Engine struct {
	Tree  *category.Tree
	NCNT  int
	MXRT  int
	Clock synth.Clock

	InflationPercent float64
	MarketInputs     weights.MarketInputs

	log zerolog.Logger
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithClock overrides the clock used by the synthesiser (tests pin a
// reference date).
func WithClock(c synth.Clock) Option {
	return func(e *Engine) { e.Clock = c }
}

// New builds an Engine. ncnt/mxrt are the subset-search and depth-cap
// tuning parameters; mkt carries the optional S&P anchors.
func New(tree *category.Tree, ncnt, mxrt int, inflationPercent float64, mkt weights.MarketInputs, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		Tree:             tree,
		NCNT:             ncnt,
		MXRT:             mxrt,
		Clock:            synth.RealClock{},
		InflationPercent: inflationPercent,
		MarketInputs:     mkt,
		log:              log.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PortfolioInput bundles everything one portfolio's run needs — already
// validated by the loader (CSV parsing/validation is an
// external collaborator, not core).
type PortfolioInput struct {
	Portfolio domain.Portfolio
	// Accounts need not be pre-sorted; RunPortfolio sorts by Order.
	Accounts []domain.Account
	Tickers  map[domain.Symbol]domain.Ticker
	Holdings map[domain.AccountID][]domain.Holding
}

// AccountOutcome pairs one account's rebalance result with its identity,
// in the order the engine processed it.
type AccountOutcome struct {
	AccountID domain.AccountID
	Result    rebalance.AccountResult
}

// PortfolioResult is the engine's output for one portfolio run.
type PortfolioResult struct {
	RunID        string
	PortfolioKey domain.PortfolioKey
	Accounts     []AccountOutcome
	Diagnostics  []diagnostics.Diagnostic
}

// RunPortfolio executes the full per-portfolio pipeline:
// synthesise missing account values, resolve weights per account via the
// five-overlay chain, classify and split, and apply the closure pass to
// the last account in declared order.
func (e *Engine) RunPortfolio(in PortfolioInput) PortfolioResult {
	runID := uuid.NewString()
	result := PortfolioResult{RunID: runID, PortfolioKey: in.Portfolio.Key}

	accounts := append([]domain.Account(nil), in.Accounts...)
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Order < accounts[j].Order })

	resolved, diags := e.resolveValues(in.Portfolio, accounts)
	result.Diagnostics = append(result.Diagnostics, diags...)

	portfolioBalanceableValue := 0.0
	accountTotals := make(map[domain.AccountID]float64, len(accounts))
	for _, acc := range accounts {
		value, ok := resolved[acc.ID]
		if !ok {
			result.Diagnostics = append(result.Diagnostics, diagnostics.Validation(acc.ID, "", "account has no resolvable value; skipping"))
			continue
		}
		total := rebalance.RebalanceableTotal(value, in.Tickers, in.Holdings[acc.ID])
		accountTotals[acc.ID] = total
		portfolioBalanceableValue += total
	}

	var already rebalance.CategoryTotals

	for i, acc := range accounts {
		total, ok := accountTotals[acc.ID]
		if !ok {
			continue
		}

		effective, wdiags := weights.Resolve(e.Tree, in.Portfolio, acc, e.MarketInputs)
		result.Diagnostics = append(result.Diagnostics, wdiags...)

		isLast := i == len(accounts)-1
		if isLast {
			closureWeights, ok, cdiags := rebalance.ClosureOverride(in.Portfolio.Key, acc.ID, portfolioBalanceableValue, in.Portfolio.Weights, already)
			result.Diagnostics = append(result.Diagnostics, cdiags...)
			if ok {
				weights.ApplyLevel1Override(effective, closureWeights)
			}
		}

		leafMembers, ldiags := rebalance.BuildLeafMembers(acc.ID, e.Tree, in.Tickers, in.Holdings[acc.ID])
		result.Diagnostics = append(result.Diagnostics, ldiags...)

		accResult := rebalance.Split(acc.ID, e.Tree, effective, leafMembers, total, e.NCNT, e.MXRT)
		result.Accounts = append(result.Accounts, AccountOutcome{AccountID: acc.ID, Result: accResult})

		already = accumulate(already, e.Tree, leafMembers, accResult.Values)

		e.log.Info().
			Str("run_id", runID).
			Str("portfolio", string(in.Portfolio.Key)).
			Str("account", fmt.Sprintf("%s/%s", acc.ID.Institution, acc.ID.AccountNumber)).
			Str("status", string(accResult.Status)).
			Float64("residual", accResult.Residual).
			Msg("account rebalanced")
	}

	return result
}

// resolveValues fills in Value for every account whose holding value is
// absent and whose synthesizer kind is set. Averaging and
// Negation synthesizers may reference other synthesized accounts, so this
// runs to a fixed point: repeat until a pass makes no further progress.
func (e *Engine) resolveValues(portfolio domain.Portfolio, accounts []domain.Account) (map[domain.AccountID]float64, []diagnostics.Diagnostic) {
	resolved := make(map[domain.AccountID]float64, len(accounts))
	pending := make(map[domain.AccountID]domain.Account)
	for _, acc := range accounts {
		if acc.Value != nil {
			resolved[acc.ID] = *acc.Value
			continue
		}
		pending[acc.ID] = acc
	}

	var diags []diagnostics.Diagnostic
	for round := 0; round < len(accounts)+1 && len(pending) > 0; round++ {
		progressed := false
		for id, acc := range pending {
			v, err := synth.Value(e.Clock, portfolio, acc, resolved, e.InflationPercent)
			if err != nil {
				continue
			}
			resolved[id] = v
			delete(pending, id)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	for id := range pending {
		diags = append(diags, diagnostics.Validation(id, "", "account value could not be synthesized (missing or circular references)"))
	}

	return resolved, diags
}

// accumulate adds one account's proposed ticker values onto the running
// per-level-1-category totals the closure pass needs,
// inverting leafMembers to find each symbol's leaf and walking that leaf
// up to its level-1 ancestor.
func accumulate(totals rebalance.CategoryTotals, tree *category.Tree, leafMembers map[category.NodeKey][]allocator.Member, values map[domain.Symbol]float64) rebalance.CategoryTotals {
	symbolLeaf := make(map[domain.Symbol]category.NodeKey)
	for leaf, members := range leafMembers {
		for _, m := range members {
			symbolLeaf[m.Symbol] = leaf
		}
	}

	for symbol, v := range values {
		leaf, ok := symbolLeaf[symbol]
		if !ok {
			continue
		}
		switch level1Of(tree, leaf) {
		case category.KeyStock:
			totals.Stock += v
		case category.KeyBond:
			totals.Bond += v
		case category.KeyCash:
			totals.Cash += v
		case category.KeyRealEstate:
			totals.RealEstate += v
		}
	}
	return totals
}

// level1Of walks up from key to the node whose parent is the root,
// returning that ancestor's key (one of Stock/Bond/Cash/RealEstate).
func level1Of(tree *category.Tree, key category.NodeKey) category.NodeKey {
	cur := key
	for {
		node, ok := tree.Node(cur)
		if !ok {
			return ""
		}
		if node.Parent == category.KeyAll || node.Parent == "" {
			return cur
		}
		cur = node.Parent
	}
}
