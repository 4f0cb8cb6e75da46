// Package rebalance implements the recursive weight-proportional node
// splitter and the portfolio closure pass.
package rebalance

import (
	"github.com/aristath/rebalance/internal/allocator"
	"github.com/aristath/rebalance/internal/category"
	"github.com/aristath/rebalance/internal/diagnostics"
	"github.com/aristath/rebalance/internal/domain"
)

// depthOf follows Parent links from key up to the root, counting the
// steps, giving the node's depth (root = 0).
func depthOf(tree *category.Tree, key category.NodeKey) int {
	depth := 0
	for cur := key; cur != category.KeyAll; {
		n, ok := tree.Node(cur)
		if !ok || n.Parent == "" {
			break
		}
		cur = n.Parent
		depth++
	}
	return depth
}

// BuildLeafMembers classifies every balanceable holding's ticker into a
// tree node and groups the resulting allocator.Member values by node.
// Non-balanceable holdings (debts, single securities,
// non-rebalanceable funds) are excluded entirely — they pass through
// unrebalanced.
func BuildLeafMembers(
	accountID domain.AccountID,
	tree *category.Tree,
	tickers map[domain.Symbol]domain.Ticker,
	holdings []domain.Holding,
) (map[category.NodeKey][]allocator.Member, []diagnostics.Diagnostic) {
	out := map[category.NodeKey][]allocator.Member{}
	var diags []diagnostics.Diagnostic

	for _, h := range holdings {
		ticker, ok := tickers[h.Symbol]
		if !ok {
			diags = append(diags, diagnostics.Validation(accountID, h.Symbol, "holding references unknown ticker"))
			continue
		}
		if !ticker.Kind.Balanceable() {
			continue
		}

		leaf, err := category.Classify(tree, ticker)
		if err != nil {
			diags = append(diags, diagnostics.Classification(accountID, h.Symbol, err.Error()))
			continue
		}

		// h.Weight is taken as-is: the loader is responsible for defaulting
		// an absent CSV weight column to 1 before constructing the
		// Holding, so a 0 reaching here is always a deliberate
		// withholding of the ticker from allocation.
		out[leaf] = append(out[leaf], allocator.Member{
			Symbol:        h.Symbol,
			HoldingWeight: h.Weight,
			MinInvestment: ticker.MinInvestment,
			Rounding:      ticker.Rounding,
			Price:         h.Price,
		})
	}

	return out, diags
}

// RebalanceableTotal is the account total minus the value of every
// non-balanceable holding (debts, single securities, non-rebalanceable
// funds), which pass through untouched.
func RebalanceableTotal(accountValue float64, tickers map[domain.Symbol]domain.Ticker, holdings []domain.Holding) float64 {
	total := accountValue
	for _, h := range holdings {
		ticker, ok := tickers[h.Symbol]
		if !ok {
			continue
		}
		if !ticker.Kind.Balanceable() {
			total -= h.ResolvedValue()
		}
	}
	return total
}
