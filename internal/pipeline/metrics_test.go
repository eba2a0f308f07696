package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/internal/core"
)

func TestHealthScore(t *testing.T) {
	cases := []struct {
		ratio float64
		want  int
	}{
		{0, 0},
		{-5, 0},
		{5, 25},
		{10, 50},
		{19.99, 99},
		{20, 100},
		{45, 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HealthScore(tc.ratio), "ratio %v", tc.ratio)
	}
}

func TestSavingsRatio(t *testing.T) {
	assert.Equal(t, 0.0, SavingsRatio(dec("100"), decimal.Zero))
	assert.InDelta(t, 20.0, SavingsRatio(dec("1000"), dec("5000")), 1e-12)
	assert.InDelta(t, 12.5, SavingsRatio(dec("125"), dec("1000")), 1e-12)
}

func TestComputeHealthExample(t *testing.T) {
	txs := []core.Transaction{
		tx(core.NewDate(2024, 1, 5), "Salário", "Trabalho", "5000", core.KindIncome, 1),
		tx(core.NewDate(2024, 1, 10), "Contas", "Casa", "3000", core.KindExpense, 1),
		tx(core.NewDate(2024, 1, 11), "Aporte", "Investimento", "1000", core.KindExpense, 1),
	}
	rate := MonthlyRate(12, 100)
	buckets := ApplySimulation(AggregateMonthly(txs, AggregateOptions{}), rate)
	require.Len(t, buckets, 1)

	assert.InDelta(t, 0.0095, rate, 1e-4)
	assert.True(t, buckets[0].SimulatedInvestment.Equal(dec("1000")))

	h := ComputeHealth(buckets)
	assert.InDelta(t, 20.0, h.SavingsRatio, 1e-9)
	assert.Equal(t, 100, h.Score)
	assert.True(t, h.TotalIncome.Equal(dec("5000")))
	assert.True(t, h.TotalContribution.Equal(dec("1000")))
}

func TestComputeHealthEmpty(t *testing.T) {
	h := ComputeHealth(nil)
	assert.Equal(t, 0.0, h.SavingsRatio)
	assert.Equal(t, 0, h.Score)
	assert.True(t, h.TotalIncome.IsZero())
}

func TestLatestSnapshot(t *testing.T) {
	_, ok := LatestSnapshot(nil, 0.01)
	assert.False(t, ok)

	buckets := AggregateMonthly(sampleTransactions(), AggregateOptions{})
	snap, ok := LatestSnapshot(buckets, 0.01)
	require.True(t, ok)
	assert.Equal(t, core.MonthKey("2024-03"), snap.Month)
	assert.True(t, snap.Balance.Equal(dec("-2000")))
	assert.True(t, snap.Negative)
	assert.Equal(t, 0.01, snap.MonthlyRate)
}
