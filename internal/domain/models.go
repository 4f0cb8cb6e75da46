// Package domain provides the core data model for the rebalancing engine:
// portfolios, accounts, tickers, and holdings, plus the small closed
// enumerations each of them carries.
//
// These are pure value types with no infrastructure dependencies — no SQL,
// no HTTP, no file I/O. Collaborators (internal/loader, internal/persistence)
// produce and consume these types at their boundaries.
package domain

import "time"

// TickerKind classifies how a ticker behaves for rebalancing purposes.
type TickerKind string

const (
	TickerFundRebalanceable    TickerKind = "fund_rebalanceable"
	TickerFundNotRebalanceable TickerKind = "fund_not_rebalanceable"
	TickerSingleSecurity       TickerKind = "single_security"
	TickerETF                  TickerKind = "etf"
)

// Balanceable reports whether holdings of this kind may be adjusted by the
// engine.
func (k TickerKind) Balanceable() bool {
	return k == TickerFundRebalanceable || k == TickerETF
}

// TaxType is the fixed enum of account tax treatments.
type TaxType string

const (
	TaxCredit          TaxType = "credit"
	TaxHSA             TaxType = "hsa"
	TaxInheritedIRA    TaxType = "inherited_ira"
	TaxNonRoth401k     TaxType = "non_roth_401k"
	TaxNonRothAnnuity  TaxType = "non_roth_annuity"
	TaxNonRothIRA      TaxType = "non_roth_ira"
	TaxPension         TaxType = "pension"
	TaxRealEstate      TaxType = "real_estate"
	TaxRoth401k        TaxType = "roth_401k"
	TaxRothAnnuity     TaxType = "roth_annuity"
	TaxRothIRA         TaxType = "roth_ira"
	TaxTaxable         TaxType = "taxable"
)

// RebalanceProcedure selects how an account's rebalance node splits its
// total.
type RebalanceProcedure string

const (
	ProcedurePercent      RebalanceProcedure = "percent"
	ProcedureRedistribute RebalanceProcedure = "redistribute"
)

// SynthesizerKind names the five ways an account's value can be derived when
// it is not directly observed.
type SynthesizerKind string

const (
	SynthAveraging     SynthesizerKind = "averaging"
	SynthCPIAnnuity    SynthesizerKind = "cpi_annuity"
	SynthNegation      SynthesizerKind = "negation"
	SynthNoCPIAnnuity  SynthesizerKind = "no_cpi_annuity"
	SynthSocialSecurity SynthesizerKind = "social_security"
)

// Level1Weights holds the four top-level target weights (ratios, not
// required to sum to 100) carried by both Portfolio and Account.
type Level1Weights struct {
	Stock      float64
	Bond       float64
	Cash       float64
	RealEstate float64
}

// Sum returns Stock+Bond+Cash+RealEstate.
func (w Level1Weights) Sum() float64 {
	return w.Stock + w.Bond + w.Cash + w.RealEstate
}

// PortfolioKey opaquely identifies a portfolio.
type PortfolioKey string

// Portfolio carries investor-level data shared across all its accounts.
type Portfolio struct {
	Key PortfolioKey

	FilingStatus string
	BirthDate    time.Time
	MortalityDate time.Time

	MonthlyAnnuityIncome       float64
	MonthlySocialSecurityIncome float64
	TaxableIncome              float64

	Weights Level1Weights

	// IncreaseAtZero / IncreaseAtBear feed the hyperbolic market adjuster.
	// Nil means "not specified" — the corresponding
	// adjustment is skipped.
	IncreaseAtZero *float64
	IncreaseAtBear *float64
}

// AccountID identifies an account by (institution, account number).
type AccountID struct {
	Institution   string
	AccountNumber string
}

// WeightOverride is a fine-grained replacement for weights anywhere in the
// category tree, keyed by the dotted node path used by internal/category
// (e.g. "stock.domestic.large.growth_and_value"). When present on an
// Account it replaces the weight of each node it names, at any level
// (overlay 3); nodes it does not name keep the earlier overlays' weights.
type WeightOverride map[string]float64

// Account is a single rebalanceable unit at one institution.
type Account struct {
	ID AccountID

	PortfolioKey PortfolioKey

	// Order is the account's position in the portfolio's declared
	// rebalance order; the highest Order value in a portfolio is the
	// "last account" that receives the closure pass.
	Order int

	Procedure RebalanceProcedure
	TaxType   TaxType

	Weights Level1Weights

	// Override, when non-nil, replaces the weight of every node it names
	// (overlay 3); other nodes keep their earlier weights.
	Override WeightOverride

	// Synthesizer, when set, derives this account's Value when it is
	// not directly observed.
	Synthesizer         SynthesizerKind
	SynthesizerHasKind  bool
	ReferencedAccounts  []AccountID

	// Value is the account's current total. It may be nil before
	// synthesis runs; the engine fills it in from the Synthesizer or
	// fails the account with a diagnostic if neither is available.
	Value *float64
}

// IsLastInPortfolio reports whether this account has the highest Order
// among accounts sharing its PortfolioKey. Callers pass the full ordered
// slice for the portfolio.
func IsLastInPortfolio(account Account, allInPortfolio []Account) bool {
	for _, other := range allInPortfolio {
		if other.ID != account.ID && other.Order > account.Order {
			return false
		}
	}
	return true
}

// Symbol identifies a ticker.
type Symbol string

// Ticker carries the static characteristics the allocator and classifier
// need.
type Ticker struct {
	Symbol Symbol
	Kind   TickerKind

	// MinInvestment is the smallest non-zero magnitude this ticker may
	// carry; may be negative (a credit limit).
	MinInvestment float64
	// Rounding is the share-quantity step; 0 permits fractional shares.
	Rounding float64

	// Subcodes classifies the ticker into exactly one category-tree leaf
	// (up to four single-character codes: type / region / size / style).
	// See internal/category for the code vocabulary.
	Subcodes []string
}

// Holding is a (account, ticker) instance.
type Holding struct {
	AccountID AccountID
	Symbol    Symbol

	Shares float64
	Price  float64
	// Value, when nil, is derived as Shares*Price; when set, Shares may
	// be derived as Value/Price. May be negative (a debt).
	Value *float64

	// Weight is a non-negative multiplier controlling relative share
	// among same-leaf tickers. 0 withholds the ticker from allocation.
	// Defaults to 1.
	Weight float64
}

// ResolvedValue returns the holding's value, deriving it from Shares*Price
// when Value is unset.
func (h Holding) ResolvedValue() float64 {
	if h.Value != nil {
		return *h.Value
	}
	return h.Shares * h.Price
}
