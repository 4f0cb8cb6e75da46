// Package loader reads the dated CSV inputs (portfolios, accounts,
// detailed overrides, tickers, holdings) into validated domain objects.
// It does no weight-tree or allocation logic: rows that fail validation
// are skipped with a diagnostic, matching how the engine itself treats
// recoverable conditions.
//
// No third-party CSV library appears anywhere in the example corpus, so
// this package uses encoding/csv directly.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rebalance/internal/diagnostics"
	"github.com/aristath/rebalance/internal/domain"
	"github.com/aristath/rebalance/internal/engine"
)

// File names the loader expects inside the input directory.
const (
	PortfoliosFile = "portfolios.csv"
	AccountsFile   = "accounts.csv"
	DetailsFile    = "details.csv"
	TickersFile    = "tickers.csv"
	HoldingsFile   = "holdings.csv"
)

// Dataset is one coherent set of inputs, ready to be fed to the engine
// portfolio by portfolio.
type Dataset struct {
	Portfolios map[domain.PortfolioKey]domain.Portfolio
	Accounts   []domain.Account
	Tickers    map[domain.Symbol]domain.Ticker
	Holdings   map[domain.AccountID][]domain.Holding

	Diagnostics []diagnostics.Diagnostic
}

// Loader reads one input directory.
type Loader struct {
	dir string
	log zerolog.Logger
}

// New creates a Loader rooted at dir.
func New(dir string, log zerolog.Logger) *Loader {
	return &Loader{dir: dir, log: log.With().Str("component", "loader").Logger()}
}

// Load reads every input file. Missing optional files (details) are
// skipped; missing required files are an error.
func (l *Loader) Load() (*Dataset, error) {
	ds := &Dataset{
		Portfolios: map[domain.PortfolioKey]domain.Portfolio{},
		Tickers:    map[domain.Symbol]domain.Ticker{},
		Holdings:   map[domain.AccountID][]domain.Holding{},
	}

	if err := l.readFile(PortfoliosFile, true, ds.readPortfolioRow); err != nil {
		return nil, err
	}
	if err := l.readFile(AccountsFile, true, ds.readAccountRow); err != nil {
		return nil, err
	}
	if err := l.readFile(DetailsFile, false, ds.readDetailRow); err != nil {
		return nil, err
	}
	if err := l.readFile(TickersFile, true, ds.readTickerRow); err != nil {
		return nil, err
	}
	if err := l.readFile(HoldingsFile, true, ds.readHoldingRow); err != nil {
		return nil, err
	}

	l.log.Info().
		Int("portfolios", len(ds.Portfolios)).
		Int("accounts", len(ds.Accounts)).
		Int("tickers", len(ds.Tickers)).
		Int("diagnostics", len(ds.Diagnostics)).
		Msg("Dataset loaded")

	return ds, nil
}

// row is one CSV record with its header resolved to named fields.
type row struct {
	file   string
	line   int
	fields map[string]string
}

func (r row) get(name string) string {
	return strings.TrimSpace(r.fields[name])
}

func (r row) float(name string) (float64, error) {
	v := r.get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s line %d: column %q: %w", r.file, r.line, name, err)
	}
	return f, nil
}

func (r row) optionalFloat(name string) (*float64, error) {
	v := r.get(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s line %d: column %q: %w", r.file, r.line, name, err)
	}
	return &f, nil
}

func (r row) date(name string) (time.Time, error) {
	v := r.get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s line %d: column %q: %w", r.file, r.line, name, err)
	}
	return t, nil
}

func (l *Loader) readFile(name string, required bool, handle func(row) error) error {
	path := filepath.Join(l.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read %s header: %w", name, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s line %d: %w", name, line+1, err)
		}
		line++

		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				fields[h] = record[i]
			}
		}
		if err := handle(row{file: name, line: line, fields: fields}); err != nil {
			return err
		}
	}
}

func (ds *Dataset) readPortfolioRow(r row) error {
	key := domain.PortfolioKey(r.get("key"))
	if key == "" {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Diagnostic{
			Kind: diagnostics.KindValidation, Severity: diagnostics.SeverityError,
			Message: fmt.Sprintf("%s line %d: portfolio row without a key", r.file, r.line),
		})
		return nil
	}

	p := domain.Portfolio{Key: key, FilingStatus: r.get("filing_status")}

	var err error
	if p.BirthDate, err = r.date("birth_date"); err != nil {
		return err
	}
	if p.MortalityDate, err = r.date("mortality_date"); err != nil {
		return err
	}
	if p.MonthlyAnnuityIncome, err = r.float("monthly_annuity"); err != nil {
		return err
	}
	if p.MonthlySocialSecurityIncome, err = r.float("monthly_social_security"); err != nil {
		return err
	}
	if p.TaxableIncome, err = r.float("taxable_income"); err != nil {
		return err
	}
	if p.Weights, err = level1Weights(r); err != nil {
		return err
	}
	if p.IncreaseAtZero, err = r.optionalFloat("increase_at_zero"); err != nil {
		return err
	}
	if p.IncreaseAtBear, err = r.optionalFloat("increase_at_bear"); err != nil {
		return err
	}

	ds.Portfolios[key] = p
	return nil
}

// level1Weights reads the four level-1 weight columns shared by the
// portfolio and account files.
func level1Weights(r row) (domain.Level1Weights, error) {
	var w domain.Level1Weights
	var err error
	if w.Stock, err = r.float("stock"); err != nil {
		return w, err
	}
	if w.Bond, err = r.float("bond"); err != nil {
		return w, err
	}
	if w.Cash, err = r.float("cash"); err != nil {
		return w, err
	}
	if w.RealEstate, err = r.float("real_estate"); err != nil {
		return w, err
	}
	return w, nil
}

var taxTypes = map[string]domain.TaxType{
	"credit":           domain.TaxCredit,
	"hsa":              domain.TaxHSA,
	"inherited_ira":    domain.TaxInheritedIRA,
	"non_roth_401k":    domain.TaxNonRoth401k,
	"non_roth_annuity": domain.TaxNonRothAnnuity,
	"non_roth_ira":     domain.TaxNonRothIRA,
	"pension":          domain.TaxPension,
	"real_estate":      domain.TaxRealEstate,
	"roth_401k":        domain.TaxRoth401k,
	"roth_annuity":     domain.TaxRothAnnuity,
	"roth_ira":         domain.TaxRothIRA,
	"taxable":          domain.TaxTaxable,
}

var synthesizerKinds = map[string]domain.SynthesizerKind{
	"averaging":       domain.SynthAveraging,
	"cpi_annuity":     domain.SynthCPIAnnuity,
	"negation":        domain.SynthNegation,
	"no_cpi_annuity":  domain.SynthNoCPIAnnuity,
	"social_security": domain.SynthSocialSecurity,
}

func (ds *Dataset) readAccountRow(r row) error {
	id := domain.AccountID{Institution: r.get("institution"), AccountNumber: r.get("account_number")}
	if id.Institution == "" || id.AccountNumber == "" {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Diagnostic{
			Kind: diagnostics.KindValidation, Severity: diagnostics.SeverityError,
			Message: fmt.Sprintf("%s line %d: account row without (institution, account_number)", r.file, r.line),
		})
		return nil
	}

	acc := domain.Account{ID: id, PortfolioKey: domain.PortfolioKey(r.get("portfolio_key"))}
	if _, ok := ds.Portfolios[acc.PortfolioKey]; !ok {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Validation(id, "",
			fmt.Sprintf("%s line %d: account references unknown portfolio %q; skipping", r.file, r.line, acc.PortfolioKey)))
		return nil
	}

	order, err := r.float("order")
	if err != nil {
		return err
	}
	if order < 0 {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Validation(id, "",
			fmt.Sprintf("%s line %d: rebalance order must be non-negative", r.file, r.line)))
		return nil
	}
	acc.Order = int(order)

	switch strings.ToLower(r.get("procedure")) {
	case "", "percent":
		acc.Procedure = domain.ProcedurePercent
	case "redistribute":
		acc.Procedure = domain.ProcedureRedistribute
	default:
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Validation(id, "",
			fmt.Sprintf("%s line %d: unknown rebalance procedure %q; skipping account", r.file, r.line, r.get("procedure"))))
		return nil
	}

	taxType, ok := taxTypes[strings.ToLower(r.get("tax_type"))]
	if !ok {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Validation(id, "",
			fmt.Sprintf("%s line %d: unknown tax type %q; skipping account", r.file, r.line, r.get("tax_type"))))
		return nil
	}
	acc.TaxType = taxType

	if acc.Weights, err = level1Weights(r); err != nil {
		return err
	}

	if kind := strings.ToLower(r.get("synthesizer")); kind != "" {
		synthKind, ok := synthesizerKinds[kind]
		if !ok {
			ds.Diagnostics = append(ds.Diagnostics, diagnostics.Validation(id, "",
				fmt.Sprintf("%s line %d: unknown synthesizer kind %q; skipping account", r.file, r.line, kind)))
			return nil
		}
		acc.Synthesizer = synthKind
		acc.SynthesizerHasKind = true
		acc.ReferencedAccounts = parseAccountRefs(r.get("referenced_accounts"))
	}

	if acc.Value, err = r.optionalFloat("value"); err != nil {
		return err
	}

	ds.Accounts = append(ds.Accounts, acc)
	return nil
}

// parseAccountRefs splits "inst:number;inst:number" into AccountIDs.
func parseAccountRefs(s string) []domain.AccountID {
	if s == "" {
		return nil
	}
	var out []domain.AccountID
	for _, part := range strings.Split(s, ";") {
		bits := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(bits) != 2 || bits[0] == "" || bits[1] == "" {
			continue
		}
		out = append(out, domain.AccountID{Institution: bits[0], AccountNumber: bits[1]})
	}
	return out
}

// readDetailRow attaches one fine-grained weight override row to its
// account. Rows arrive one (account, node, weight) triple at a time and
// accumulate into the account's Override map.
func (ds *Dataset) readDetailRow(r row) error {
	id := domain.AccountID{Institution: r.get("institution"), AccountNumber: r.get("account_number")}
	weight, err := r.float("weight")
	if err != nil {
		return err
	}
	nodeKey := r.get("node_key")
	if nodeKey == "" {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Validation(id, "",
			fmt.Sprintf("%s line %d: detail row without a node_key", r.file, r.line)))
		return nil
	}

	for i := range ds.Accounts {
		if ds.Accounts[i].ID != id {
			continue
		}
		if ds.Accounts[i].Override == nil {
			ds.Accounts[i].Override = domain.WeightOverride{}
		}
		ds.Accounts[i].Override[nodeKey] = weight
		return nil
	}

	ds.Diagnostics = append(ds.Diagnostics, diagnostics.Validation(id, "",
		fmt.Sprintf("%s line %d: detail row references unknown account", r.file, r.line)))
	return nil
}

var tickerKinds = map[string]domain.TickerKind{
	"fund_rebalanceable":     domain.TickerFundRebalanceable,
	"fund_not_rebalanceable": domain.TickerFundNotRebalanceable,
	"single_security":        domain.TickerSingleSecurity,
	"etf":                    domain.TickerETF,
}

func (ds *Dataset) readTickerRow(r row) error {
	symbol := domain.Symbol(r.get("symbol"))
	if symbol == "" {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Diagnostic{
			Kind: diagnostics.KindValidation, Severity: diagnostics.SeverityError,
			Message: fmt.Sprintf("%s line %d: ticker row without a symbol", r.file, r.line),
		})
		return nil
	}

	kind, ok := tickerKinds[strings.ToLower(r.get("kind"))]
	if !ok {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Diagnostic{
			Kind: diagnostics.KindValidation, Severity: diagnostics.SeverityError,
			Message: fmt.Sprintf("%s line %d: ticker %s has unknown kind %q; skipping", r.file, r.line, symbol, r.get("kind")),
			Symbol:  symbol,
		})
		return nil
	}

	t := domain.Ticker{Symbol: symbol, Kind: kind}

	var err error
	if t.MinInvestment, err = r.float("min_investment"); err != nil {
		return err
	}
	if t.Rounding, err = r.float("rounding"); err != nil {
		return err
	}
	if t.Rounding < 0 {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Diagnostic{
			Kind: diagnostics.KindValidation, Severity: diagnostics.SeverityError,
			Message: fmt.Sprintf("%s line %d: ticker %s has negative rounding; skipping", r.file, r.line, symbol),
			Symbol:  symbol,
		})
		return nil
	}

	if codes := r.get("subcodes"); codes != "" {
		for _, c := range strings.Split(codes, ";") {
			c = strings.TrimSpace(c)
			if c != "" && c != "_" {
				t.Subcodes = append(t.Subcodes, c)
			}
		}
	}

	ds.Tickers[symbol] = t
	return nil
}

func (ds *Dataset) readHoldingRow(r row) error {
	id := domain.AccountID{Institution: r.get("institution"), AccountNumber: r.get("account_number")}
	symbol := domain.Symbol(r.get("symbol"))
	if symbol == "" {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Validation(id, "",
			fmt.Sprintf("%s line %d: holding row without a symbol", r.file, r.line)))
		return nil
	}
	if _, ok := ds.Tickers[symbol]; !ok {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Validation(id, symbol,
			fmt.Sprintf("%s line %d: holding references unknown ticker", r.file, r.line)))
		return nil
	}

	h := domain.Holding{AccountID: id, Symbol: symbol}

	var err error
	if h.Shares, err = r.float("shares"); err != nil {
		return err
	}
	if h.Price, err = r.float("price"); err != nil {
		return err
	}
	if h.Value, err = r.optionalFloat("value"); err != nil {
		return err
	}

	// An absent weight column defaults to 1; an explicit 0 is a deliberate
	// exclusion from allocation.
	if r.get("weight") == "" {
		h.Weight = 1
	} else if h.Weight, err = r.float("weight"); err != nil {
		return err
	}
	if h.Weight < 0 {
		ds.Diagnostics = append(ds.Diagnostics, diagnostics.Validation(id, symbol,
			fmt.Sprintf("%s line %d: holding weight must be non-negative; skipping", r.file, r.line)))
		return nil
	}

	ds.Holdings[id] = append(ds.Holdings[id], h)
	return nil
}

// PortfolioInputs groups the dataset into one engine.PortfolioInput per
// portfolio, sorted by key for a deterministic run order.
func (ds *Dataset) PortfolioInputs() []engine.PortfolioInput {
	byPortfolio := map[domain.PortfolioKey][]domain.Account{}
	for _, acc := range ds.Accounts {
		byPortfolio[acc.PortfolioKey] = append(byPortfolio[acc.PortfolioKey], acc)
	}

	keys := make([]domain.PortfolioKey, 0, len(ds.Portfolios))
	for k := range ds.Portfolios {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var out []engine.PortfolioInput
	for _, k := range keys {
		out = append(out, engine.PortfolioInput{
			Portfolio: ds.Portfolios[k],
			Accounts:  byPortfolio[k],
			Tickers:   ds.Tickers,
			Holdings:  ds.Holdings,
		})
	}
	return out
}
