package synth

import (
	"testing"
	"time"

	"github.com/aristath/rebalance/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestValue_CPIAnnuity(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	portfolio := domain.Portfolio{
		MortalityDate:        now.AddDate(1, 0, 0),
		MonthlyAnnuityIncome: 1000,
	}
	account := domain.Account{Synthesizer: domain.SynthCPIAnnuity}

	v, err := Value(fixedClock{now}, portfolio, account, nil, 3.0)
	require.NoError(t, err)
	assert.InDelta(t, 12000, v, 1)
}

func TestValue_NoCPIAnnuityDecaysBelowFlat(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	portfolio := domain.Portfolio{
		MortalityDate:        now.AddDate(20, 0, 0),
		MonthlyAnnuityIncome: 1000,
	}
	flat := domain.Account{Synthesizer: domain.SynthCPIAnnuity}
	decayed := domain.Account{Synthesizer: domain.SynthNoCPIAnnuity}

	flatValue, err := Value(fixedClock{now}, portfolio, flat, nil, 3.0)
	require.NoError(t, err)
	decayedValue, err := Value(fixedClock{now}, portfolio, decayed, nil, 3.0)
	require.NoError(t, err)

	assert.Less(t, decayedValue, flatValue)
}

func TestValue_SocialSecurityStartsAtAge62(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	portfolio := domain.Portfolio{
		BirthDate:                   now.AddDate(-50, 0, 0), // 12 years until 62
		MortalityDate:               now.AddDate(30, 0, 0),
		MonthlySocialSecurityIncome: 2000,
	}
	account := domain.Account{Synthesizer: domain.SynthSocialSecurity}

	v, err := Value(fixedClock{now}, portfolio, account, nil, 3.0)
	require.NoError(t, err)
	// Benefits run from age 62 (12 years out) to mortality (30 years out): 18 years.
	assert.InDelta(t, 2000*18*12, v, 2000)
}

func TestValue_Averaging(t *testing.T) {
	a := domain.AccountID{Institution: "x", AccountNumber: "1"}
	b := domain.AccountID{Institution: "x", AccountNumber: "2"}
	account := domain.Account{Synthesizer: domain.SynthAveraging, ReferencedAccounts: []domain.AccountID{a, b}}

	v, err := Value(RealClock{}, domain.Portfolio{}, account, map[domain.AccountID]float64{a: 100, b: 300}, 3.0)
	require.NoError(t, err)
	assert.Equal(t, 200.0, v)
}

func TestValue_NegationSumsAndFlipsSign(t *testing.T) {
	a := domain.AccountID{Institution: "x", AccountNumber: "1"}
	b := domain.AccountID{Institution: "x", AccountNumber: "2"}
	account := domain.Account{Synthesizer: domain.SynthNegation, ReferencedAccounts: []domain.AccountID{a, b}}

	v, err := Value(RealClock{}, domain.Portfolio{}, account, map[domain.AccountID]float64{a: 100, b: 300}, 3.0)
	require.NoError(t, err)
	assert.Equal(t, -400.0, v)
}

func TestValue_AveragingMissingReferenceErrors(t *testing.T) {
	a := domain.AccountID{Institution: "x", AccountNumber: "1"}
	account := domain.Account{Synthesizer: domain.SynthAveraging, ReferencedAccounts: []domain.AccountID{a}}

	_, err := Value(RealClock{}, domain.Portfolio{}, account, nil, 3.0)
	assert.Error(t, err)
}
