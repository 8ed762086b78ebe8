package models

import "time"

// BillingCycle is how often a subscription is charged.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// Subscription is a recurring payment.
type Subscription struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Amount   float64      `json:"amount"`
	Currency string       `json:"currency"`
	Cycle    BillingCycle `json:"cycle,omitempty"`
	Category string       `json:"category,omitempty"`
	Active   bool         `json:"active"`

	// NextPayment is stored as given. The store never recomputes it.
	NextPayment time.Time `json:"nextPayment"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TransactionType separates money in from money out.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction is a single booked amount.
type Transaction struct {
	ID          string          `json:"id"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Type        TransactionType `json:"type,omitempty"`
	Date        time.Time       `json:"date"`
	Amount      float64         `json:"amount"`
	Currency    string          `json:"currency"`
}

// BudgetSettings is the singleton budget configuration.
type BudgetSettings struct {
	MonthlyBudget float64 `json:"monthlyBudget"`
	Currency      string  `json:"currency"`
	Notifications bool    `json:"notifications"`

	// WarningThreshold is a percentage of MonthlyBudget. By convention it
	// lies in [0, 100]; the store does not enforce it.
	WarningThreshold float64 `json:"warningThreshold"`
}

// DefaultBudgetSettings returns the settings used when nothing is stored.
func DefaultBudgetSettings() BudgetSettings {
	return BudgetSettings{
		MonthlyBudget:    0,
		Currency:         "HUF",
		Notifications:    true,
		WarningThreshold: 80,
	}
}
