package http

import (
	"painel/internal/core"
	"painel/internal/pipeline"
)

// displayStrings are preformatted values for clients that only render text.
type displayStrings struct {
	CumulativeBalance   string `json:"cumulative_balance,omitempty"`
	SimulatedInvestment string `json:"simulated_investment,omitempty"`
	MonthIncome         string `json:"month_income,omitempty"`
	MonthExpense        string `json:"month_expense,omitempty"`
	TotalIncome         string `json:"total_income"`
	TotalContribution   string `json:"total_contribution"`
	SavingsRatio        string `json:"savings_ratio"`
	MonthlyRate         string `json:"monthly_rate"`
}

type dashboardResponse struct {
	pipeline.Dashboard
	AvailableMonths []core.MonthKey `json:"available_months"`
	Display         displayStrings  `json:"display"`
}

type monthsResponse struct {
	Months      []core.MonthlyBucket `json:"months"`
	Latest      *core.Snapshot       `json:"latest,omitempty"`
	Health      core.Health          `json:"health"`
	MonthlyRate float64              `json:"monthly_rate"`
	Settings    core.Settings        `json:"settings"`
}

type focusResponse struct {
	Focus           *core.MonthFocus `json:"focus"`
	AvailableMonths []core.MonthKey  `json:"available_months"`
}

type transactionsResponse struct {
	Range        core.DateRange      `json:"range"`
	Span         core.DateRange      `json:"span"`
	Count        int                 `json:"count"`
	Transactions []core.Transaction  `json:"transactions"`
	Undated      []core.Transaction  `json:"undated"`
	Warnings     []core.ParseWarning `json:"warnings"`
}

func newDashboardResponse(d pipeline.Dashboard) dashboardResponse {
	return dashboardResponse{
		Dashboard:       d,
		AvailableMonths: availableMonths(d),
		Display:         newDisplayStrings(d),
	}
}

func newDisplayStrings(d pipeline.Dashboard) displayStrings {
	ds := displayStrings{
		TotalIncome:       core.FormatBRL(d.Health.TotalIncome),
		TotalContribution: core.FormatBRL(d.Health.TotalContribution),
		SavingsRatio:      core.FormatPercent(d.Health.SavingsRatio),
		MonthlyRate:       core.FormatPercent(d.MonthlyRate*100) + " a.m.",
	}
	if d.Latest != nil {
		ds.CumulativeBalance = core.FormatBRL(d.Latest.CumulativeBalance)
		ds.SimulatedInvestment = core.FormatBRL(d.Latest.SimulatedInvestment)
	}
	if d.Focus != nil {
		ds.MonthIncome = core.FormatBRL(d.Focus.IncomeTotal)
		ds.MonthExpense = core.FormatBRL(d.Focus.ExpenseTotal)
	}
	return ds
}

func availableMonths(d pipeline.Dashboard) []core.MonthKey {
	months := pipeline.AvailableMonths(d.Months)
	if months == nil {
		return []core.MonthKey{}
	}
	return months
}
