package rebalance

import (
	"math"
	"sort"
	"strings"

	"github.com/aristath/rebalance/internal/allocator"
	"github.com/aristath/rebalance/internal/category"
	"github.com/aristath/rebalance/internal/diagnostics"
	"github.com/aristath/rebalance/internal/domain"
)

// Status summarizes how well an account's allocation went.
type Status string

const (
	StatusOK       Status = "ok"
	StatusPartial  Status = "partial"
	StatusInfeasible Status = "infeasible"
)

// AccountResult is the engine's output for one account.
type AccountResult struct {
	Status      Status
	Values      map[domain.Symbol]float64
	Residual    float64
	Diagnostics []diagnostics.Diagnostic
}

// Split pushes amount down the tree from the root, splitting by effective
// weight at each node until it reaches leaves, then invokes the allocator
// at each leaf. ncnt bounds each leaf's subset search; mxrt
// bounds which nodes may receive a second allocation pass to mop up
// residual absorbed from elsewhere in the tree.
func Split(accountID domain.AccountID, tree *category.Tree, effective map[category.NodeKey]float64, leafMembers map[category.NodeKey][]allocator.Member, amount float64, ncnt, mxrt int) AccountResult {
	values := map[domain.Symbol]float64{}
	var diags []diagnostics.Diagnostic
	budgetHit := false
	anyInfeasible := false

	residual := splitNode(tree, effective, leafMembers, category.KeyAll, amount, 0, ncnt, values, &budgetHit, &anyInfeasible)

	if math.Abs(residual) > allocator.MinorUnit {
		if absorbed := absorbResidual(tree, leafMembers, residual, mxrt, values); absorbed {
			residual = 0
		} else {
			diags = append(diags, diagnostics.Infeasibility(accountID, "", "account-level residual could not be absorbed by any leaf"))
		}
	}

	status := StatusOK
	if anyInfeasible {
		status = StatusPartial
	}
	if math.Abs(residual) > allocator.MinorUnit {
		status = StatusInfeasible
	}
	if budgetHit {
		diags = append(diags, diagnostics.BudgetExhaustion(accountID, "", "allocator width budget exhausted on at least one leaf"))
	}

	return AccountResult{Status: status, Values: values, Residual: residual, Diagnostics: diags}
}

// splitNode recurses from key down to leaves, writing proposed ticker
// values into values and returning whatever amount could not be placed
// anywhere in this subtree.
func splitNode(
	tree *category.Tree,
	effective map[category.NodeKey]float64,
	leafMembers map[category.NodeKey][]allocator.Member,
	key category.NodeKey,
	amount float64,
	depth int,
	ncnt int,
	values map[domain.Symbol]float64,
	budgetHit *bool,
	anyInfeasible *bool,
) float64 {
	node, ok := tree.Node(key)
	if !ok {
		return amount
	}

	if node.Leaf {
		return allocateLeaf(key, leafMembers[key], amount, ncnt, values, budgetHit, anyInfeasible)
	}

	// Only children whose subtree holds at least one bound ticker take a
	// share; weight on an empty subtree would strand its amount.
	populated := func(c category.NodeKey) bool {
		for k, ms := range leafMembers {
			if len(ms) > 0 && (k == c || strings.HasPrefix(string(k), string(c)+".")) {
				return true
			}
		}
		return false
	}

	bound := leafMembers[key]
	w := 0.0
	for _, c := range node.Children {
		if effective[c] > 0 && populated(c) {
			w += effective[c]
		}
	}

	if w == 0 {
		if len(bound) > 0 {
			return allocateLeaf(key, bound, amount, ncnt, values, budgetHit, anyInfeasible)
		}
		return amount
	}

	// A node with directly-bound tickers alongside weighted children
	// treats the bound-ticker bucket as one more sibling, weighted equal
	// to the average of the real children's weights — the root's
	// "share allocation with its siblings, equal-weight by default" rule
	// generalized to any partially-specified binding depth.
	residual := 0.0
	childCount := len(node.Children)
	pseudoWeight := 0.0
	if len(bound) > 0 && childCount > 0 {
		pseudoWeight = w / float64(childCount)
		w += pseudoWeight
	}

	children := append([]category.NodeKey(nil), node.Children...)
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })

	for _, c := range children {
		cw := effective[c]
		if cw <= 0 || !populated(c) {
			continue
		}
		share := amount * cw / w
		residual += splitNode(tree, effective, leafMembers, c, share, depth+1, ncnt, values, budgetHit, anyInfeasible)
	}

	if pseudoWeight > 0 {
		share := amount * pseudoWeight / w
		residual += allocateLeaf(key, bound, share, ncnt, values, budgetHit, anyInfeasible)
	}

	return residual
}

func allocateLeaf(key category.NodeKey, members []allocator.Member, amount float64, ncnt int, values map[domain.Symbol]float64, budgetHit, anyInfeasible *bool) float64 {
	if len(members) == 0 {
		return amount
	}
	result := allocator.Allocate(members, amount, ncnt)
	for symbol, v := range result.Values {
		values[symbol] += v
	}
	if result.BudgetHit {
		*budgetHit = true
	}
	if result.Unallocable {
		*anyInfeasible = true
	}
	return result.Residual
}

// absorbResidual looks for the first tree-order leaf, at depth <= mxrt,
// whose bound members include at least one unconstrained ticker (no
// rounding, no minimum investment — a sink able to absorb arbitrary
// currency, typically a money-market leaf under Cash) and adds the
// residual directly to that ticker. Reports whether an absorbing leaf was
// found.
func absorbResidual(tree *category.Tree, leafMembers map[category.NodeKey][]allocator.Member, residual float64, mxrt int, values map[domain.Symbol]float64) bool {
	for _, leaf := range tree.Leaves() {
		if depthOf(tree, leaf.Key) > mxrt {
			continue
		}
		members := leafMembers[leaf.Key]
		absorberIdx := -1
		for i, m := range members {
			if m.Rounding == 0 && m.MinInvestment == 0 {
				absorberIdx = i
				break
			}
		}
		if absorberIdx < 0 {
			continue
		}
		// The absorbing ticker accepts any amount by definition (no
		// rounding, no minimum), so the whole residual lands on it
		// directly — this leaf's other members keep whatever the
		// top-down pass already assigned them.
		values[members[absorberIdx].Symbol] += residual
		return true
	}
	return false
}
