// Package synth derives an account's current value when it is not directly
// observed from holdings, using one of the five synthesizer kinds
// (CPI-Annuity, No-CPI-Annuity, Social-Security, Averaging,
// Negation). Synthesised values are opaque to the rebalancer beyond their
// sign and magnitude.
package synth

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/rebalance/internal/domain"
)

// Clock supplies "now" so tests can pin a reference date; production code
// uses RealClock.
type Clock interface {
	Now() time.Time
}

// RealClock returns the wall-clock time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// monthsBetween counts months from `from` to `to`, adding the day-of-month
// difference as a fraction of a 30-day month, floored at zero.
func monthsBetween(from, to time.Time) float64 {
	if to.Before(from) {
		return 0
	}
	years := to.Year() - from.Year()
	months := int(to.Month()) - int(from.Month())
	total := years*12 + months
	// Partial-month fraction from day-of-month difference, so a mortality
	// date mid-month doesn't round a whole extra payment in.
	dayFrac := float64(to.Day()-from.Day()) / 30.0
	n := float64(total) + dayFrac
	if n < 0 {
		return 0
	}
	return n
}

// age62Date returns the date the portfolio's owner turns 62, used by the
// Social-Security synthesizer's "max(now, age-62 date)" lower bound.
func age62Date(birthDate time.Time) time.Time {
	return birthDate.AddDate(62, 0, 0)
}

// Value derives one account's value; referencedValues supplies the
// already-resolved values of any accounts this one's synthesizer
// references (Averaging, Negation), keyed by AccountID.
func Value(clock Clock, portfolio domain.Portfolio, account domain.Account, referencedValues map[domain.AccountID]float64, inflationPercent float64) (float64, error) {
	now := clock.Now()

	switch account.Synthesizer {
	case domain.SynthCPIAnnuity:
		months := monthsBetween(now, portfolio.MortalityDate)
		return portfolio.MonthlyAnnuityIncome * months, nil

	case domain.SynthNoCPIAnnuity:
		return noCPIAnnuityValue(now, portfolio, inflationPercent), nil

	case domain.SynthSocialSecurity:
		start := now
		if a62 := age62Date(portfolio.BirthDate); a62.After(start) {
			start = a62
		}
		months := monthsBetween(start, portfolio.MortalityDate)
		return portfolio.MonthlySocialSecurityIncome * months, nil

	case domain.SynthAveraging:
		if len(account.ReferencedAccounts) == 0 {
			return 0, fmt.Errorf("averaging synthesizer on account %+v has no referenced accounts", account.ID)
		}
		sum := 0.0
		for _, ref := range account.ReferencedAccounts {
			v, ok := referencedValues[ref]
			if !ok {
				return 0, fmt.Errorf("averaging synthesizer on account %+v references unresolved account %+v", account.ID, ref)
			}
			sum += v
		}
		return sum / float64(len(account.ReferencedAccounts)), nil

	case domain.SynthNegation:
		sum := 0.0
		for _, ref := range account.ReferencedAccounts {
			v, ok := referencedValues[ref]
			if !ok {
				return 0, fmt.Errorf("negation synthesizer on account %+v references unresolved account %+v", account.ID, ref)
			}
			sum += v
		}
		return -sum, nil
	}

	return 0, fmt.Errorf("account %+v has no usable synthesizer kind", account.ID)
}

// noCPIAnnuityValue sums monthly income, discounting each month's payment
// by (1+inflation)^-years so later payments are worth progressively less
// in today's terms, so later payments are discounted by accumulated
// inflation.
func noCPIAnnuityValue(now time.Time, portfolio domain.Portfolio, inflationPercent float64) float64 {
	totalMonths := monthsBetween(now, portfolio.MortalityDate)
	if totalMonths <= 0 {
		return 0
	}
	inflation := inflationPercent / 100.0
	sum := 0.0
	n := int(totalMonths)
	for m := 0; m < n; m++ {
		years := float64(m) / 12.0
		sum += portfolio.MonthlyAnnuityIncome * math.Pow(1+inflation, -years)
	}
	return sum
}
