package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MonthKey identifies a calendar month as "YYYY-MM". Lexicographic order is chronological.
type MonthKey string

// ParseMonthKey validates a "YYYY-MM" string.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthKey(s), nil
}

// Start returns the first day of the month.
func (m MonthKey) Start() Date {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return Date{}
	}
	return Date{Time: t}
}

// Next returns the following month.
func (m MonthKey) Next() MonthKey {
	return m.Start().AddMonths(1).MonthKey()
}

func (m MonthKey) String() string {
	return string(m)
}

// MonthlyBucket aggregates one calendar month of the expanded transaction set.
type MonthlyBucket struct {
	Month               MonthKey        `json:"month"`
	Income              decimal.Decimal `json:"income"`
	Expense             decimal.Decimal `json:"expense"`
	Contribution        decimal.Decimal `json:"contribution"`
	Balance             decimal.Decimal `json:"balance"`
	CumulativeBalance   decimal.Decimal `json:"cumulative_balance"`
	SimulatedInvestment decimal.Decimal `json:"simulated_investment"`
}

// NewMonthlyBucket returns an all-zero bucket for the month.
func NewMonthlyBucket(m MonthKey) MonthlyBucket {
	return MonthlyBucket{
		Month:               m,
		Income:              decimal.Zero,
		Expense:             decimal.Zero,
		Contribution:        decimal.Zero,
		Balance:             decimal.Zero,
		CumulativeBalance:   decimal.Zero,
		SimulatedInvestment: decimal.Zero,
	}
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Share  float64         `json:"share"` // percent of the month's expense
}

// Health summarises savings behaviour over the observed period.
type Health struct {
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalContribution decimal.Decimal `json:"total_contribution"`
	SavingsRatio      float64         `json:"savings_ratio"`
	Score             int             `json:"score"`
}

// Snapshot is the latest month of the monthly table.
type Snapshot struct {
	Month               MonthKey        `json:"month"`
	Income              decimal.Decimal `json:"income"`
	Expense             decimal.Decimal `json:"expense"`
	Balance             decimal.Decimal `json:"balance"`
	CumulativeBalance   decimal.Decimal `json:"cumulative_balance"`
	SimulatedInvestment decimal.Decimal `json:"simulated_investment"`
	MonthlyRate         float64         `json:"monthly_rate"`
	// Negative is set when the accumulated account balance is in the red.
	Negative bool `json:"negative"`
}

// MonthFocus is the drill-down for a single month.
type MonthFocus struct {
	Month        MonthKey         `json:"month"`
	IncomeTotal  decimal.Decimal  `json:"income_total"`
	ExpenseTotal decimal.Decimal  `json:"expense_total"`
	Income       []Transaction    `json:"income"`
	Expenses     []Transaction    `json:"expenses"`
	ByCategory   []CategoryAmount `json:"by_category"`
	Transactions []Transaction    `json:"transactions"`
}

// DateRange is an inclusive analysis window. Either bound may be missing.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Complete reports whether both bounds are set and ordered.
func (r DateRange) Complete() bool {
	return !r.Start.IsEmpty() && !r.End.IsEmpty() && !r.End.Before(r.Start.Time)
}

// Contains reports whether d lies within the inclusive range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// Settings are the user-adjustable simulation parameters.
type Settings struct {
	AnnualRate   float64 `json:"annual_rate"`   // nominal annual rate, percent
	RateAchieved float64 `json:"rate_achieved"` // percent of the annual rate actually earned
}

// Validate rejects parameters that make the compounding formula undefined.
func (s Settings) Validate() error {
	if math.IsNaN(s.AnnualRate) || math.IsInf(s.AnnualRate, 0) {
		return fmt.Errorf("%w: annual rate must be a finite number", ErrInvalidSettings)
	}
	if math.IsNaN(s.RateAchieved) || math.IsInf(s.RateAchieved, 0) {
		return fmt.Errorf("%w: rate achieved must be a finite number", ErrInvalidSettings)
	}
	if s.AnnualRate <= -100 {
		return fmt.Errorf("%w: annual rate %.2f must be greater than -100", ErrInvalidSettings, s.AnnualRate)
	}
	if s.RateAchieved < 0 {
		return fmt.Errorf("%w: rate achieved %.2f cannot be negative", ErrInvalidSettings, s.RateAchieved)
	}
	return nil
}
