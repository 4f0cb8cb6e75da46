// Package allocator implements the leaf-level ticker-set subset search
// — the algorithmic centre of the engine.
package allocator

import (
	"math"
	"sort"

	"github.com/aristath/rebalance/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// MinorUnit is the currency's smallest reportable unit; residuals within
// one MinorUnit of zero are treated as zero.
const MinorUnit = 0.01

// Member is one ticker eligible for a leaf's allocation, carrying the
// per-holding data the allocator needs.
type Member struct {
	Symbol        domain.Symbol
	HoldingWeight float64
	MinInvestment float64
	Rounding      float64
	Price         float64
}

// Result is the outcome of allocating one leaf's amount across its
// tickers.
type Result struct {
	Values       map[domain.Symbol]float64
	Residual     float64
	Deviation2   float64
	BudgetHit    bool
	Unallocable  bool
}

// Allocate searches subsets of members for the best split of amount.
// ncnt caps the number of subsets examined before the
// width-limit fallback policy engages.
func Allocate(members []Member, amount float64, ncnt int) Result {
	usable := make([]Member, 0, len(members))
	for _, m := range members {
		if m.HoldingWeight > 0 {
			usable = append(usable, m)
		}
	}
	if len(usable) == 0 {
		zero := make(map[domain.Symbol]float64, len(members))
		for _, m := range members {
			zero[m.Symbol] = 0
		}
		return Result{Values: zero, Residual: amount, Unallocable: true}
	}

	n := len(usable)

	// Global ideal: the weight-proportional target over the WHOLE member
	// set, fixed regardless of which subset is being tried. A subset that
	// excludes a heavily-weighted ticker is penalized against this ideal
	// even though it distributes perfectly among its own members: v_i*
	// is defined over the full leaf, not per subset, while proportional
	// distribution governs only how S itself splits the money.
	totalH := 0.0
	for _, m := range usable {
		totalH += m.HoldingWeight
	}
	globalIdeals := make([]float64, n)
	if totalH > 0 {
		for i, m := range usable {
			globalIdeals[i] = amount * m.HoldingWeight / totalH
		}
	}

	var best *candidate
	examined := 0
	zeroResidualFound := false
	budgetHit := false

	consider := func(idx subset) bool {
		c := evaluate(usable, idx, amount, globalIdeals)
		if c != nil && better(c, best) {
			best = c
		}
		if c != nil && math.Abs(c.residual) <= MinorUnit {
			zeroResidualFound = true
		}
		examined++
		if examined >= ncnt {
			budgetHit = true
			return false
		}
		return true
	}

	enumerate(n, consider)

	if budgetHit && !zeroResidualFound {
		// Switch to the unbounded size<=2 fallback.
		resumeFrom := 0
		enumerateSizeUpTo(n, 2, func(idx subset) bool {
			resumeFrom++
			if resumeFrom <= examined {
				return true
			}
			c := evaluate(usable, idx, amount, globalIdeals)
			if c != nil && better(c, best) {
				best = c
			}
			return true
		})
	}

	values := make(map[domain.Symbol]float64, len(members))
	for _, m := range members {
		values[m.Symbol] = 0
	}
	residual := amount
	deviation2 := 0.0
	if best != nil {
		for i, m := range usable {
			values[m.Symbol] = round(best.values[i])
		}
		residual = best.residual
		deviation2 = best.deviation2
	}

	return Result{
		Values:     values,
		Residual:   residual,
		Deviation2: deviation2,
		BudgetHit:  budgetHit,
	}
}

type candidate struct {
	indices    subset
	values     []float64
	residual   float64
	deviation2 float64
	symbols    []string
}

// evaluate distributes amount proportionally to holding-weight across the
// members in idx, snaps each to a feasible value, and scores the result
// against the global (whole-leaf) ideal.
func evaluate(usable []Member, idx subset, amount float64, globalIdeals []float64) *candidate {
	hSum := 0.0
	for _, i := range idx {
		hSum += usable[i].HoldingWeight
	}
	if hSum == 0 {
		if len(idx) != 1 {
			return nil
		}
		hSum = 1
	}

	values := make([]float64, len(usable))
	for _, i := range idx {
		m := usable[i]
		distributionTarget := amount * m.HoldingWeight / hSum
		values[i] = snap(m, distributionTarget)
	}

	sum := 0.0
	for _, i := range idx {
		sum += values[i]
	}
	residual := amount - sum

	deviation2 := weightedDeviation2(usable, values, globalIdeals)

	symbols := make([]string, len(idx))
	for j, i := range idx {
		symbols[j] = string(usable[i].Symbol)
	}
	sort.Strings(symbols)

	return &candidate{indices: idx, values: values, residual: residual, deviation2: deviation2, symbols: symbols}
}

// snap rounds a single ticker's ideal value to the nearest feasible point:
// zero, or a share count that is a non-negative multiple of m.Rounding and
// whose magnitude is at least m.MinInvestment.
func snap(m Member, ideal float64) float64 {
	if m.Rounding <= 0 {
		if math.Abs(ideal) < math.Abs(m.MinInvestment) {
			return 0
		}
		return ideal
	}
	if m.Price == 0 {
		return 0
	}
	idealShares := ideal / m.Price
	roundedShares := math.Round(idealShares/m.Rounding) * m.Rounding
	roundedValue := roundedShares * m.Price

	minShares := math.Ceil(math.Abs(m.MinInvestment)/m.Price/m.Rounding) * m.Rounding
	if math.Abs(roundedShares) < minShares {
		// Nearest feasible nonzero point is the smallest share count
		// clearing the minimum; compare it against zero.
		feasibleShares := minShares
		if roundedShares < 0 {
			feasibleShares = -minShares
		}
		feasibleValue := feasibleShares * m.Price
		if math.Abs(ideal-0) <= math.Abs(ideal-feasibleValue) {
			return 0
		}
		return feasibleValue
	}
	return roundedValue
}

// weightedDeviation2 computes sum h_i*(v_i - v_i*)^2 over every member of
// the leaf (including ones excluded from this subset, whose v_i is 0)
// using a small gonum/mat weighted quadratic form, matching the
// deviation-squared scoring the mean-variance optimizer uses elsewhere in
// this codebase.
func weightedDeviation2(usable []Member, values, globalIdeals []float64) float64 {
	n := len(usable)
	diff := mat.NewVecDense(n, nil)
	weight := mat.NewDiagDense(n, nil)
	for i, m := range usable {
		diff.SetVec(i, values[i]-globalIdeals[i])
		weight.SetDiag(i, m.HoldingWeight)
	}
	var weighted mat.VecDense
	weighted.MulVec(weight, diff)
	return mat.Dot(diff, &weighted)
}

// better reports whether c should replace the current best: zero
// residual beats nonzero; between two nonzero residuals, the smaller
// |residual| wins; then minimum deviation2; then minimum |S|; then
// lexicographic symbol order.
func better(c *candidate, best *candidate) bool {
	if best == nil {
		return true
	}
	cZero := math.Abs(c.residual) <= MinorUnit
	bZero := math.Abs(best.residual) <= MinorUnit
	if cZero != bZero {
		return cZero
	}
	if !cZero {
		if math.Abs(c.residual) != math.Abs(best.residual) {
			return math.Abs(c.residual) < math.Abs(best.residual)
		}
	}
	if c.deviation2 != best.deviation2 {
		return c.deviation2 < best.deviation2
	}
	if len(c.indices) != len(best.indices) {
		return len(c.indices) < len(best.indices)
	}
	for i := range c.symbols {
		if i >= len(best.symbols) {
			return false
		}
		if c.symbols[i] != best.symbols[i] {
			return c.symbols[i] < best.symbols[i]
		}
	}
	return false
}

// round snaps a currency value to the minor unit boundary before it is
// reported. Uses round-half-to-even to stay deterministic at exact
// half-unit boundaries.
func round(v float64) float64 {
	scaled := v / MinorUnit
	r := math.RoundToEven(scaled)
	return r * MinorUnit
}
