package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rebalance/internal/diagnostics"
	"github.com/aristath/rebalance/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeDataset(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, dir, PortfoliosFile,
		"key,filing_status,birth_date,mortality_date,monthly_annuity,monthly_social_security,taxable_income,stock,bond,cash,real_estate,increase_at_zero,increase_at_bear\n"+
			"smith,married,1960-04-01,2045-04-01,1200,2100,85000,50,36,10,4,0.2,\n")
	writeFile(t, dir, AccountsFile,
		"portfolio_key,institution,account_number,order,procedure,tax_type,stock,bond,cash,real_estate,synthesizer,referenced_accounts,value\n"+
			"smith,vanguard,1001,0,percent,roth_ira,60,30,10,0,,,250000\n"+
			"smith,fidelity,2002,1,redistribute,taxable,50,40,10,0,,,\n"+
			"smith,pension-co,3003,2,percent,pension,0,0,100,0,cpi_annuity,,\n")
	writeFile(t, dir, DetailsFile,
		"institution,account_number,node_key,weight\n"+
			"vanguard,1001,stock.domestic,70\n"+
			"vanguard,1001,stock.foreign,30\n")
	writeFile(t, dir, TickersFile,
		"symbol,kind,min_investment,rounding,subcodes\n"+
			"VTSAX,fund_rebalanceable,3000,0,S;D\n"+
			"SPYETF,etf,0,1,S;D;L\n"+
			"VMMXX,fund_rebalanceable,0,0,K;Z\n"+
			"HOUSE,single_security,0,0,\n")
	writeFile(t, dir, HoldingsFile,
		"institution,account_number,symbol,shares,price,value,weight\n"+
			"vanguard,1001,VTSAX,100,115.5,,\n"+
			"vanguard,1001,VMMXX,5000,1,,0\n"+
			"fidelity,2002,SPYETF,20,480,,2\n")
}

func TestLoad_ReadsFullDataset(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	ds, err := New(dir, zerolog.Nop()).Load()
	require.NoError(t, err)
	assert.Empty(t, ds.Diagnostics)

	require.Contains(t, ds.Portfolios, domain.PortfolioKey("smith"))
	p := ds.Portfolios["smith"]
	assert.Equal(t, 1200.0, p.MonthlyAnnuityIncome)
	require.NotNil(t, p.IncreaseAtZero)
	assert.Equal(t, 0.2, *p.IncreaseAtZero)
	assert.Nil(t, p.IncreaseAtBear)

	require.Len(t, ds.Accounts, 3)

	vanguard := ds.Accounts[0]
	assert.Equal(t, domain.ProcedurePercent, vanguard.Procedure)
	assert.Equal(t, domain.TaxRothIRA, vanguard.TaxType)
	require.NotNil(t, vanguard.Value)
	assert.Equal(t, 250000.0, *vanguard.Value)
	require.NotNil(t, vanguard.Override)
	assert.Equal(t, 70.0, vanguard.Override["stock.domestic"])

	pension := ds.Accounts[2]
	assert.True(t, pension.SynthesizerHasKind)
	assert.Equal(t, domain.SynthCPIAnnuity, pension.Synthesizer)
	assert.Nil(t, pension.Value)

	require.Len(t, ds.Tickers, 4)
	assert.Equal(t, []string{"S", "D", "L"}, ds.Tickers["SPYETF"].Subcodes)

	vanguardID := domain.AccountID{Institution: "vanguard", AccountNumber: "1001"}
	holdings := ds.Holdings[vanguardID]
	require.Len(t, holdings, 2)
	// Absent weight column defaults to 1; explicit 0 stays 0.
	assert.Equal(t, 1.0, holdings[0].Weight)
	assert.Equal(t, 0.0, holdings[1].Weight)
}

func TestLoad_SkipsInvalidRowsWithDiagnostics(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	// Append rows that must each be skipped with a validation diagnostic.
	appendLine := func(name, line string) {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		defer f.Close()
		_, err = f.WriteString(line + "\n")
		require.NoError(t, err)
	}
	appendLine(AccountsFile, "smith,etrade,4004,0,percent,not_a_tax_type,0,0,0,0,,,")
	appendLine(AccountsFile, "ghost,etrade,5005,0,percent,taxable,0,0,0,0,,,")
	appendLine(HoldingsFile, "vanguard,1001,UNKNOWN,1,1,,")

	ds, err := New(dir, zerolog.Nop()).Load()
	require.NoError(t, err)

	assert.Len(t, ds.Accounts, 3)
	assert.Len(t, ds.Diagnostics, 3)
	for _, d := range ds.Diagnostics {
		assert.Equal(t, diagnostics.KindValidation, d.Kind)
	}
}

func TestPortfolioInputs_GroupsAccountsByPortfolio(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	ds, err := New(dir, zerolog.Nop()).Load()
	require.NoError(t, err)

	inputs := ds.PortfolioInputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, domain.PortfolioKey("smith"), inputs[0].Portfolio.Key)
	assert.Len(t, inputs[0].Accounts, 3)
}

func TestLoad_MissingRequiredFileFails(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, TickersFile)))

	_, err := New(dir, zerolog.Nop()).Load()
	assert.Error(t, err)
}
