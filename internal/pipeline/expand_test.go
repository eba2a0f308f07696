package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/internal/core"
)

func tx(date core.Date, desc, cat, amount string, kind core.Kind, installments int) core.Transaction {
	return core.Transaction{
		Date:         date,
		Description:  desc,
		Category:     cat,
		Amount:       decimal.RequireFromString(amount),
		Kind:         kind,
		Installments: installments,
	}
}

func TestExpandInstallmentsThreeMonths(t *testing.T) {
	in := []core.Transaction{tx(core.NewDate(2024, 1, 10), "Geladeira", "Casa", "300", core.KindExpense, 3)}

	out := ExpandInstallments(in)
	require.Len(t, out, 3)
	for i, want := range []core.Date{core.NewDate(2024, 1, 10), core.NewDate(2024, 2, 10), core.NewDate(2024, 3, 10)} {
		assert.True(t, out[i].Date.Equal(want.Time), "installment %d date %v", i, out[i].Date)
		assert.True(t, out[i].Amount.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, 1, out[i].Installments)
		assert.Equal(t, i+1, out[i].InstallmentIndex)
		assert.Equal(t, 3, out[i].InstallmentCount)
	}
	assert.Equal(t, "Geladeira (1/3)", out[0].Description)
	assert.Equal(t, "Geladeira (3/3)", out[2].Description)

	// input untouched
	assert.Equal(t, 3, in[0].Installments)
	assert.Equal(t, "Geladeira", in[0].Description)
}

func TestExpandInstallmentsSumsBack(t *testing.T) {
	for _, n := range []int{2, 3, 7, 12} {
		in := []core.Transaction{tx(core.NewDate(2024, 1, 31), "Curso", "Educação", "100", core.KindExpense, n)}
		out := ExpandInstallments(in)
		require.Len(t, out, n)

		sum := decimal.Zero
		for i, part := range out {
			sum = sum.Add(part.Amount)
			assert.Equal(t, core.NewDate(2024, 1, 31).AddMonths(i).MonthKey(), part.Date.MonthKey())
		}
		got, _ := sum.Float64()
		assert.InDelta(t, 100.0, got, 1e-9, "n=%d", n)
	}
}

func TestExpandInstallmentsClampsMonthEnd(t *testing.T) {
	out := ExpandInstallments([]core.Transaction{tx(core.NewDate(2024, 1, 31), "x", "y", "20", core.KindExpense, 2)})
	require.Len(t, out, 2)
	assert.True(t, out[1].Date.Equal(core.NewDate(2024, 2, 29).Time))
}

func TestExpandInstallmentsSortsByDate(t *testing.T) {
	in := []core.Transaction{
		tx(core.NewDate(2024, 3, 5), "Março", "y", "10", core.KindExpense, 1),
		tx(core.NewDate(2024, 1, 20), "Parcelado", "y", "20", core.KindExpense, 2),
		tx(core.NewDate(2024, 2, 1), "Fevereiro", "y", "10", core.KindIncome, 0),
	}
	out := ExpandInstallments(in)
	require.Len(t, out, 4)
	for i := 1; i < len(out); i++ {
		assert.False(t, out[i].Date.Before(out[i-1].Date.Time))
	}
	for _, o := range out {
		assert.Equal(t, 1, o.Installments)
	}
	assert.Equal(t, "Parcelado (1/2)", out[0].Description)
	assert.Equal(t, "Fevereiro", out[1].Description)
	assert.Equal(t, "Parcelado (2/2)", out[2].Description)
}

func TestExpandInstallmentsEmpty(t *testing.T) {
	assert.Empty(t, ExpandInstallments(nil))
}
