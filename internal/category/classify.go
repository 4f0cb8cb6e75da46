package category

import (
	"fmt"
	"sort"

	"github.com/aristath/rebalance/internal/domain"
)

// ConsistencyError reports a ticker whose subcodes imply two incompatible
// branches of the tree.
type ConsistencyError struct {
	Symbol      domain.Symbol
	Conflicting []string
}

func (e *ConsistencyError) Error() string {
	codes := append([]string(nil), e.Conflicting...)
	sort.Strings(codes)
	return fmt.Sprintf("ticker %s: conflicting subcodes %v", e.Symbol, codes)
}

// axis values. A ticker's up-to-four subcodes are interpreted against the
// axis relevant at the branch already selected — the same letter can mean
// different things depending on whether the ticker has already been placed
// under Stock, Bond, or Cash, which is how a 20-symbol alphabet covers a
// much deeper taxonomy than 20 symbols could name flatly.
const (
	codeTypeStock      = "S"
	codeTypeBond       = "T"
	codeTypeCash       = "K"
	codeTypeRealEstate = "R"

	codeRegionDomestic = "D"
	codeRegionForeign  = "G"

	codeSizeLarge  = "L"
	codeSizeMedium = "M"
	codeSizeSmall  = "N"

	codeStyleBlend  = "B"
	codeStyleGrowth = "O"
	codeStyleValue  = "V"

	codeBondCorporate          = "C"
	codeBondForeign            = "E"
	codeBondGovernment         = "H"
	codeBondHighYield          = "P"
	codeBondInflationProtected = "U"
	codeBondMortgage           = "W"
	codeBondShort              = "Y"
	codeBondUncategorized      = "Z"

	codeCashGovernment    = "H"
	codeCashUncategorized = "Z"

	placeholder = "_"
)

// Classify walks the tree from the root using the ticker's subcodes,
// returning the leaf key it binds to. A ticker whose subcodes don't fully
// specify a leaf binds to the deepest node its codes determine — that node
// need not itself be a tree leaf; with no subcodes at all it binds to
// the root.
func Classify(t *Tree, ticker domain.Ticker) (NodeKey, error) {
	codes := make([]string, 0, len(ticker.Subcodes))
	for _, c := range ticker.Subcodes {
		if c != "" && c != placeholder {
			codes = append(codes, c)
		}
	}
	has := func(values ...string) (string, bool) {
		for _, c := range codes {
			for _, v := range values {
				if c == v {
					return c, true
				}
			}
		}
		return "", false
	}

	typeCodes := map[string]NodeKey{
		codeTypeStock:      KeyStock,
		codeTypeBond:       KeyBond,
		codeTypeCash:       KeyCash,
		codeTypeRealEstate: KeyRealEstate,
	}
	var foundTypes []string
	for _, c := range codes {
		if _, ok := typeCodes[c]; ok {
			foundTypes = append(foundTypes, c)
		}
	}
	if len(foundTypes) > 1 {
		return "", &ConsistencyError{Symbol: ticker.Symbol, Conflicting: foundTypes}
	}
	if len(foundTypes) == 0 {
		return KeyAll, nil
	}
	top := typeCodes[foundTypes[0]]

	switch top {
	case KeyRealEstate:
		return KeyRealEstate, nil
	case KeyCash:
		if c, ok := has(codeCashGovernment); ok && c == codeCashGovernment {
			return KeyCashGovernment, nil
		}
		if _, ok := has(codeCashUncategorized); ok {
			return KeyCashUncategorized, nil
		}
		return KeyCash, nil
	case KeyBond:
		bondLeaves := map[string]NodeKey{
			codeBondCorporate:          KeyBondCorporate,
			codeBondForeign:            KeyBondForeign,
			codeBondGovernment:         KeyBondGovernment,
			codeBondHighYield:          KeyBondHighYield,
			codeBondInflationProtected: KeyBondInflationProtected,
			codeBondMortgage:           KeyBondMortgage,
			codeBondShort:              KeyBondShort,
			codeBondUncategorized:      KeyBondUncategorized,
		}
		var matches []NodeKey
		for _, c := range codes {
			if k, ok := bondLeaves[c]; ok {
				matches = append(matches, k)
			}
		}
		if len(matches) > 1 {
			return "", &ConsistencyError{Symbol: ticker.Symbol, Conflicting: codes}
		}
		if len(matches) == 1 {
			return matches[0], nil
		}
		return KeyBond, nil
	case KeyStock:
		return classifyStock(ticker, codes)
	}
	return KeyAll, nil
}

func classifyStock(ticker domain.Ticker, codes []string) (NodeKey, error) {
	region := NodeKey("")
	for _, c := range codes {
		switch c {
		case codeRegionDomestic:
			if region != "" && region != KeyStockDomestic {
				return "", &ConsistencyError{Symbol: ticker.Symbol, Conflicting: codes}
			}
			region = KeyStockDomestic
		case codeRegionForeign:
			if region != "" && region != KeyStockForeign {
				return "", &ConsistencyError{Symbol: ticker.Symbol, Conflicting: codes}
			}
			region = KeyStockForeign
		}
	}
	if region == "" {
		return KeyStock, nil
	}

	size := NodeKey("")
	for _, c := range codes {
		switch c {
		case codeSizeLarge:
			size = region + ".large"
		case codeSizeMedium:
			size = region + ".not_large.medium"
		case codeSizeSmall:
			size = region + ".not_large.small"
		}
	}
	if size == "" {
		return region, nil
	}

	style := ""
	for _, c := range codes {
		switch c {
		case codeStyleBlend, codeStyleGrowth, codeStyleValue:
			if style != "" && style != c {
				return "", &ConsistencyError{Symbol: ticker.Symbol, Conflicting: codes}
			}
			style = c
		}
	}
	if style == "" {
		return size, nil
	}
	if style == codeStyleBlend {
		return size + NodeKey(growthAndValueSuffix), nil
	}
	govKey := size + NodeKey(growthOrValueSuffix)
	if style == codeStyleGrowth {
		return govKey + NodeKey(growthSuffix), nil
	}
	return govKey + NodeKey(valueSuffix), nil
}
