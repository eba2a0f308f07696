package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/internal/core"
)

func sampleTransactions() []core.Transaction {
	return []core.Transaction{
		tx(core.NewDate(2024, 1, 5), "Salário", "Trabalho", "5000", core.KindIncome, 1),
		tx(core.NewDate(2024, 1, 10), "Aluguel", "Casa", "3000", core.KindExpense, 1),
		tx(core.NewDate(2024, 1, 15), "Tesouro", "Investimento", "1000", core.KindExpense, 1),
		tx(core.NewDate(2024, 3, 5), "Salário", "Trabalho", "5000", core.KindIncome, 1),
		tx(core.NewDate(2024, 3, 8), "Viagem", "Lazer", "6500", core.KindExpense, 1),
		tx(core.NewDate(2024, 3, 9), "Ações", "investimentos", "500", core.KindExpense, 1),
		tx(core.NewDate(2024, 4, 1), "Pix", "Outros", "99", core.KindUnknown, 1),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAggregateMonthly(t *testing.T) {
	buckets := AggregateMonthly(sampleTransactions(), AggregateOptions{})
	require.Len(t, buckets, 2)

	jan, mar := buckets[0], buckets[1]
	assert.Equal(t, core.MonthKey("2024-01"), jan.Month)
	assert.True(t, jan.Income.Equal(dec("5000")))
	assert.True(t, jan.Expense.Equal(dec("4000")))
	assert.True(t, jan.Contribution.Equal(dec("1000")))
	assert.True(t, jan.Balance.Equal(dec("1000")))
	assert.True(t, jan.CumulativeBalance.Equal(dec("1000")))

	assert.Equal(t, core.MonthKey("2024-03"), mar.Month)
	assert.True(t, mar.Expense.Equal(dec("7000")))
	assert.True(t, mar.Contribution.Equal(dec("500")))
	assert.True(t, mar.Balance.Equal(dec("-2000")))
	assert.True(t, mar.CumulativeBalance.Equal(dec("-1000")))
}

func TestAggregateMonthlyFillGaps(t *testing.T) {
	buckets := AggregateMonthly(sampleTransactions(), AggregateOptions{FillGaps: true})
	require.Len(t, buckets, 3)

	feb := buckets[1]
	assert.Equal(t, core.MonthKey("2024-02"), feb.Month)
	assert.True(t, feb.Income.IsZero())
	assert.True(t, feb.Balance.IsZero())
	assert.True(t, feb.CumulativeBalance.Equal(dec("1000")))
	assert.True(t, buckets[2].CumulativeBalance.Equal(dec("-1000")))
}

func TestAggregateMonthlyCumulativeProperty(t *testing.T) {
	txs := ExpandInstallments(append(sampleTransactions(),
		tx(core.NewDate(2023, 11, 30), "Notebook", "Eletrônicos", "4800", core.KindExpense, 6),
		tx(core.NewDate(2023, 12, 1), "Bônus", "Trabalho", "2500.5", core.KindIncome, 1),
	))
	buckets := AggregateMonthly(txs, AggregateOptions{})
	require.NotEmpty(t, buckets)

	assert.True(t, buckets[0].CumulativeBalance.Equal(buckets[0].Balance))
	for i := 1; i < len(buckets); i++ {
		assert.Less(t, string(buckets[i-1].Month), string(buckets[i].Month))
		want := buckets[i-1].CumulativeBalance.Add(buckets[i].Balance)
		assert.True(t, buckets[i].CumulativeBalance.Equal(want), "month %s", buckets[i].Month)
		assert.True(t, buckets[i].Balance.Equal(buckets[i].Income.Sub(buckets[i].Expense)))
	}
}

func TestAggregateMonthlyEmpty(t *testing.T) {
	assert.Empty(t, AggregateMonthly(nil, AggregateOptions{FillGaps: true}))
	assert.Empty(t, AggregateMonthly([]core.Transaction{
		tx(core.NewDate(2024, 1, 1), "?", "?", "10", core.KindUnknown, 1),
	}, AggregateOptions{}))
}
