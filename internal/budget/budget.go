// Package budget computes monthly spending against BudgetSettings and
// upcoming subscription payments. All functions are pure.
package budget

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/planner/internal/models"
)

// Converter converts amounts between currency codes.
type Converter interface {
	Convert(amount float64, from, to string) float64
}

// Report is the spending state of one calendar month.
type Report struct {
	Month    string  `json:"month"`
	Currency string  `json:"currency"`
	Spent    float64 `json:"spent"`
	Budget   float64 `json:"budget"`
	Percent  float64 `json:"percent"`
	Warning  bool    `json:"warning"`
	Exceeded bool    `json:"exceeded"`
}

// Status sums the expenses booked in asOf's calendar month, converted to
// the budget currency. Warning is set once Percent reaches the warning
// threshold and Exceeded once Spent is above the budget. A zero budget
// never warns.
func Status(settings models.BudgetSettings, transactions []models.Transaction, conv Converter, asOf time.Time) Report {
	loc := asOf.Location()
	year, month, _ := asOf.Date()

	spent := decimal.Zero
	for _, tx := range transactions {
		if !isExpense(tx) {
			continue
		}
		y, m, _ := tx.Date.In(loc).Date()
		if y != year || m != month {
			continue
		}
		spent = spent.Add(amountIn(conv, abs(tx.Amount), tx.Currency, settings.Currency))
	}

	r := Report{
		Month:    asOf.Format("2006-01"),
		Currency: settings.Currency,
		Spent:    round(spent, 2),
		Budget:   settings.MonthlyBudget,
	}
	if !finite(settings.MonthlyBudget) || settings.MonthlyBudget <= 0 {
		return r
	}

	limit := decimal.NewFromFloat(settings.MonthlyBudget)
	pct := spent.Div(limit).Mul(decimal.NewFromInt(100))
	r.Percent = round(pct, 1)
	r.Exceeded = spent.GreaterThan(limit)
	r.Warning = r.Exceeded ||
		(finite(settings.WarningThreshold) && pct.GreaterThanOrEqual(decimal.NewFromFloat(settings.WarningThreshold)))
	return r
}

// Upcoming returns the active subscriptions whose next payment falls in
// [asOf, asOf+within], earliest first.
func Upcoming(subs []models.Subscription, asOf time.Time, within time.Duration) []models.Subscription {
	end := asOf.Add(within)
	var out []models.Subscription
	for _, s := range subs {
		if !s.Active {
			continue
		}
		if s.NextPayment.Before(asOf) || s.NextPayment.After(end) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextPayment.Before(out[j].NextPayment)
	})
	return out
}

// MonthlyCost is the monthly cost of all active subscriptions in the given
// currency. Yearly subscriptions count one twelfth of their amount.
func MonthlyCost(subs []models.Subscription, conv Converter, currency string) float64 {
	total := decimal.Zero
	for _, s := range subs {
		if !s.Active {
			continue
		}
		amount := amountIn(conv, s.Amount, s.Currency, currency)
		if s.Cycle == models.CycleYearly {
			amount = amount.Div(decimal.NewFromInt(12))
		}
		total = total.Add(amount)
	}
	return round(total, 2)
}

// InvoiceTotal sums quantity × unit price over the invoice lines.
func InvoiceTotal(items []models.InvoiceItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(toDecimal(it.Quantity).Mul(toDecimal(it.UnitPrice)))
	}
	return round(total, 2)
}

// isExpense treats untyped negative amounts as expenses too.
func isExpense(tx models.Transaction) bool {
	switch tx.Type {
	case models.TransactionExpense:
		return true
	case models.TransactionIncome:
		return false
	default:
		return tx.Amount < 0
	}
}

// amountIn converts amount into to. Amounts that are or convert to
// infinity or NaN count as zero.
func amountIn(conv Converter, amount float64, from, to string) decimal.Decimal {
	if conv == nil || from == "" || from == to {
		return toDecimal(amount)
	}
	return toDecimal(conv.Convert(amount, from, to))
}

// toDecimal is decimal.NewFromFloat with zero for non-finite input, which
// NewFromFloat panics on.
func toDecimal(f float64) decimal.Decimal {
	if !finite(f) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func round(d decimal.Decimal, places int32) float64 {
	f, _ := d.Round(places).Float64()
	return f
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
