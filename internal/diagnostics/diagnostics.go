// Package diagnostics defines the vocabulary the engine uses to report
// recoverable problems without aborting a run.
package diagnostics

import "github.com/aristath/rebalance/internal/domain"

// Severity ranks how serious a Diagnostic is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Kind names the fixed taxonomy of recoverable conditions.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindClassification   Kind = "classification"
	KindInfeasibility    Kind = "infeasibility"
	KindPortfolioOvershoot Kind = "portfolio_overshoot"
	KindCurveWarning     Kind = "curve_warning"
	KindBudgetExhaustion Kind = "budget_exhaustion"
)

// Diagnostic is attached to the most specific entity a recoverable
// condition concerns: a portfolio, an account, a leaf, or a ticker.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Message  string

	PortfolioKey domain.PortfolioKey
	AccountID    *domain.AccountID
	LeafKey      string
	Symbol       domain.Symbol
}

// List collects diagnostics for one run and appends in arrival order —
// engine callers never need to sort or dedupe, only append.
type List struct {
	items []Diagnostic
}

func (l *List) Add(d Diagnostic) {
	l.items = append(l.items, d)
}

func (l *List) Items() []Diagnostic {
	return l.items
}

func (l *List) HasErrors() bool {
	for _, d := range l.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func Validation(accountID domain.AccountID, symbol domain.Symbol, message string) Diagnostic {
	return Diagnostic{Kind: KindValidation, Severity: SeverityError, Message: message, AccountID: &accountID, Symbol: symbol}
}

func Classification(accountID domain.AccountID, symbol domain.Symbol, message string) Diagnostic {
	return Diagnostic{Kind: KindClassification, Severity: SeverityWarning, Message: message, AccountID: &accountID, Symbol: symbol}
}

func Infeasibility(accountID domain.AccountID, leafKey, message string) Diagnostic {
	return Diagnostic{Kind: KindInfeasibility, Severity: SeverityWarning, Message: message, AccountID: &accountID, LeafKey: leafKey}
}

func PortfolioOvershoot(portfolioKey domain.PortfolioKey, accountID domain.AccountID, message string) Diagnostic {
	return Diagnostic{Kind: KindPortfolioOvershoot, Severity: SeverityWarning, Message: message, PortfolioKey: portfolioKey, AccountID: &accountID}
}

func CurveWarning(portfolioKey domain.PortfolioKey, message string) Diagnostic {
	return Diagnostic{Kind: KindCurveWarning, Severity: SeverityWarning, Message: message, PortfolioKey: portfolioKey}
}

func BudgetExhaustion(accountID domain.AccountID, leafKey, message string) Diagnostic {
	return Diagnostic{Kind: KindBudgetExhaustion, Severity: SeverityInfo, Message: message, AccountID: &accountID, LeafKey: leafKey}
}
