package pipeline

import (
	"math"

	"github.com/shopspring/decimal"

	"painel/internal/core"
)

// SavingsTarget is the savings ratio (percent) that earns a full health score.
const SavingsTarget = 20.0

// ComputeHealth derives the savings ratio and health score from the monthly table.
func ComputeHealth(buckets []core.MonthlyBucket) core.Health {
	h := core.Health{
		TotalIncome:       decimal.Zero,
		TotalContribution: decimal.Zero,
	}
	for _, b := range buckets {
		h.TotalIncome = h.TotalIncome.Add(b.Income)
		h.TotalContribution = h.TotalContribution.Add(b.Contribution)
	}
	h.SavingsRatio = SavingsRatio(h.TotalContribution, h.TotalIncome)
	h.Score = HealthScore(h.SavingsRatio)
	return h
}

// SavingsRatio returns contributions as a percentage of income, or 0 without income.
func SavingsRatio(contributions, income decimal.Decimal) float64 {
	if !income.IsPositive() {
		return 0
	}
	ratio, _ := contributions.Div(income).Mul(decimal.NewFromInt(100)).Float64()
	return ratio
}

// HealthScore maps a savings ratio onto [0, 100], reaching 100 at SavingsTarget.
func HealthScore(ratio float64) int {
	if math.IsNaN(ratio) || ratio <= 0 {
		return 0
	}
	score := math.Floor(ratio / SavingsTarget * 100)
	if score > 100 {
		return 100
	}
	return int(score)
}

// LatestSnapshot returns the chronologically last month. It reports false on an empty table.
func LatestSnapshot(buckets []core.MonthlyBucket, monthlyRate float64) (core.Snapshot, bool) {
	if len(buckets) == 0 {
		return core.Snapshot{}, false
	}
	last := buckets[len(buckets)-1]
	return core.Snapshot{
		Month:               last.Month,
		Income:              last.Income,
		Expense:             last.Expense,
		Balance:             last.Balance,
		CumulativeBalance:   last.CumulativeBalance,
		SimulatedInvestment: last.SimulatedInvestment,
		MonthlyRate:         monthlyRate,
		Negative:            last.CumulativeBalance.IsNegative(),
	}, true
}
