package pipeline

import (
	"math"

	"github.com/shopspring/decimal"

	"painel/internal/core"
)

// simulationPlaces bounds the precision of the running balance so that long
// horizons do not grow the decimal without limit.
const simulationPlaces = 10

// MonthlyRate converts an annual nominal rate (percent) and the share of it
// actually achieved (percent) into an effective monthly rate:
//
//	((1 + R/100)^(1/12) - 1) * (P/100)
//
// Inputs that make the formula undefined yield 0.
func MonthlyRate(annualPct, achievedPct float64) float64 {
	r := (math.Pow(1+annualPct/100, 1.0/12) - 1) * (achievedPct / 100)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// SimulateInvestment compounds the running balance once per month and then
// adds that month's contribution, starting from zero. The output has one
// balance per contribution in the same order. Negative contributions count as zero.
func SimulateInvestment(contributions []decimal.Decimal, monthlyRate float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(contributions))
	growth := decimal.NewFromFloat(1 + monthlyRate)
	balance := decimal.Zero
	for i, c := range contributions {
		if c.IsNegative() {
			c = decimal.Zero
		}
		balance = balance.Mul(growth).Add(c).Round(simulationPlaces)
		out[i] = balance
	}
	return out
}

// ApplySimulation returns a copy of buckets with SimulatedInvestment filled in.
func ApplySimulation(buckets []core.MonthlyBucket, monthlyRate float64) []core.MonthlyBucket {
	contributions := make([]decimal.Decimal, len(buckets))
	for i, b := range buckets {
		contributions[i] = b.Contribution
	}
	balances := SimulateInvestment(contributions, monthlyRate)

	out := make([]core.MonthlyBucket, len(buckets))
	copy(out, buckets)
	for i := range out {
		out[i].SimulatedInvestment = balances[i]
	}
	return out
}
