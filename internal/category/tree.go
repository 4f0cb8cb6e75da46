// Package category builds the fixed weight-type tree and classifies tickers
// into its leaves by subcode.
package category

// NodeKey is a dotted path identifying a node in the tree, e.g.
// "stock.domestic.large.growth_and_value". Root is "all".
type NodeKey string

const (
	KeyAll        NodeKey = "all"
	KeyStock      NodeKey = "stock"
	KeyBond       NodeKey = "bond"
	KeyCash       NodeKey = "cash"
	KeyRealEstate NodeKey = "real_estate"

	KeyStockDomestic NodeKey = "stock.domestic"
	KeyStockForeign  NodeKey = "stock.foreign"

	KeyStockDomesticLarge    NodeKey = "stock.domestic.large"
	KeyStockDomesticNotLarge NodeKey = "stock.domestic.not_large"
	KeyStockForeignLarge     NodeKey = "stock.foreign.large"
	KeyStockForeignNotLarge  NodeKey = "stock.foreign.not_large"

	KeyStockDomesticMedium NodeKey = "stock.domestic.not_large.medium"
	KeyStockDomesticSmall  NodeKey = "stock.domestic.not_large.small"
	KeyStockForeignMedium  NodeKey = "stock.foreign.not_large.medium"
	KeyStockForeignSmall   NodeKey = "stock.foreign.not_large.small"

	KeyBondCorporate          NodeKey = "bond.corporate"
	KeyBondForeign            NodeKey = "bond.foreign"
	KeyBondGovernment         NodeKey = "bond.government"
	KeyBondHighYield          NodeKey = "bond.high_yield"
	KeyBondInflationProtected NodeKey = "bond.inflation_protected"
	KeyBondMortgage           NodeKey = "bond.mortgage"
	KeyBondShort              NodeKey = "bond.short"
	KeyBondUncategorized      NodeKey = "bond.uncategorized"

	KeyCashGovernment    NodeKey = "cash.government"
	KeyCashUncategorized NodeKey = "cash.uncategorized"
)

// growthAndValueSuffix / growthOrValueSuffix are appended under Large,
// Medium, and Small alike — the same GrowthAndValue/GrowthOrValue/Growth/
// Value split recurs at every size bucket, just one level deeper under
// Medium/Small than under Large.
const (
	growthAndValueSuffix = ".growth_and_value"
	growthOrValueSuffix  = ".growth_or_value"
	growthSuffix         = ".growth"
	valueSuffix          = ".value"
)

// Node is one node of the static weight-type tree. DefaultWeight is the
// built-in weight table value; per-account effective weights are computed
// by internal/weights into a separate map and are not stored on the node.
type Node struct {
	Key      NodeKey
	Parent   NodeKey
	Children []NodeKey
	Leaf     bool

	DefaultWeight float64
}

// Tree is the full set of nodes, indexed by key, plus the fixed traversal
// order used everywhere results must be reproducible.
type Tree struct {
	nodes map[NodeKey]*Node
	// order lists every key in the fixed order New adds them (root, the
	// level-1 nodes, then the deeper nodes subtree by subtree).
	order []NodeKey
}

// Nodes returns the tree's nodes in the fixed order New adds them.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.nodes[k])
	}
	return out
}

// Node looks up a node by key.
func (t *Tree) Node(key NodeKey) (*Node, bool) {
	n, ok := t.nodes[key]
	return n, ok
}

// Leaves returns every leaf node in fixed order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	for _, k := range t.order {
		if n := t.nodes[k]; n.Leaf {
			out = append(out, n)
		}
	}
	return out
}

// New builds the fixed weight-type tree with built-in default weights.
func New() *Tree {
	t := &Tree{nodes: map[NodeKey]*Node{}}

	add := func(key, parent NodeKey, weight float64, leaf bool) {
		t.nodes[key] = &Node{Key: key, Parent: parent, DefaultWeight: weight, Leaf: leaf}
		if parent != "" {
			p := t.nodes[parent]
			p.Children = append(p.Children, key)
		}
		t.order = append(t.order, key)
	}

	add(KeyAll, "", 100, false)
	add(KeyStock, KeyAll, 50, false)
	add(KeyBond, KeyAll, 36, false)
	add(KeyCash, KeyAll, 10, false)
	add(KeyRealEstate, KeyAll, 4, true)

	add(KeyStockDomestic, KeyStock, 60, false)
	add(KeyStockForeign, KeyStock, 40, false)

	for _, region := range []NodeKey{KeyStockDomestic, KeyStockForeign} {
		large := region + ".large"
		notLarge := region + ".not_large"
		add(large, region, 60, false)
		add(notLarge, region, 40, false)
		addGrowthSplit(t, large, growthAndValueSuffix, growthOrValueSuffix, growthSuffix, valueSuffix)

		medium := notLarge + ".medium"
		small := notLarge + ".small"
		add(medium, notLarge, 50, false)
		add(small, notLarge, 50, false)
		addGrowthSplit(t, medium, growthAndValueSuffix, growthOrValueSuffix, growthSuffix, valueSuffix)
		addGrowthSplit(t, small, growthAndValueSuffix, growthOrValueSuffix, growthSuffix, valueSuffix)
	}

	add(KeyBondCorporate, KeyBond, 12.5, true)
	add(KeyBondUncategorized, KeyBond, 12.5, true)
	add(KeyBondForeign, KeyBond, 7, true)
	add(KeyBondHighYield, KeyBond, 5, true)
	add(KeyBondInflationProtected, KeyBond, 5, true)
	add(KeyBondGovernment, KeyBond, 0, true)
	add(KeyBondMortgage, KeyBond, 8, true)
	add(KeyBondShort, KeyBond, 50, true)

	add(KeyCashGovernment, KeyCash, 50, true)
	add(KeyCashUncategorized, KeyCash, 50, true)

	return t
}

func addGrowthSplit(t *Tree, parent NodeKey, gav, gov, growth, value string) {
	add := func(key, p NodeKey, weight float64, leaf bool) {
		t.nodes[key] = &Node{Key: key, Parent: p, DefaultWeight: weight, Leaf: leaf}
		t.nodes[p].Children = append(t.nodes[p].Children, key)
		t.order = append(t.order, key)
	}
	gavKey := parent + NodeKey(gav)
	govKey := parent + NodeKey(gov)
	add(gavKey, parent, 50, true)
	add(govKey, parent, 50, false)

	growthKey := govKey + NodeKey(growth)
	valueKey := govKey + NodeKey(value)
	add(growthKey, govKey, 40, true)
	add(valueKey, govKey, 60, true)
}
