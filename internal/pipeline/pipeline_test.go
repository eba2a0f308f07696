package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/internal/core"
)

func sampleRows() []core.RawRow {
	return []core.RawRow{
		raw(2, "05/01/2024", "Salário", "Trabalho", "R$ 5.000,00", "Receita", "1"),
		raw(3, "10/01/2024", "Aluguel", "Casa", "R$ 2.400,00", "Despesa", "1"),
		raw(4, "12/01/2024", "Tesouro Selic", "Investimento", "R$ 1.000,00", "Despesa", "1"),
		raw(5, "20/01/2024", "Celular", "Eletrônicos", "R$ 1.800,00", "Despesa", "3"),
		raw(6, "05/02/2024", "Salário", "Trabalho", "R$ 5.000,00", "Receita", ""),
		raw(7, "data?", "Sem data", "Casa", "R$ 10,00", "Despesa", ""),
	}
}

func TestRun(t *testing.T) {
	d := Run(sampleRows(), DefaultParams())

	require.Len(t, d.Months, 3)
	assert.Equal(t, core.MonthKey("2024-01"), d.Months[0].Month)
	assert.Equal(t, core.MonthKey("2024-03"), d.Months[2].Month)
	assert.True(t, d.Months[0].Expense.Equal(dec("4000")))
	assert.True(t, d.Months[1].Expense.Equal(dec("600")))
	assert.True(t, d.Months[2].Income.IsZero())
	assert.True(t, d.Months[2].CumulativeBalance.Equal(dec("4800")))

	require.NotNil(t, d.Latest)
	assert.Equal(t, core.MonthKey("2024-03"), d.Latest.Month)
	assert.InDelta(t, MonthlyRate(11.25, 120), d.MonthlyRate, 1e-15)
	assert.True(t, d.Latest.SimulatedInvestment.GreaterThan(dec("1000")))

	assert.InDelta(t, 10.0, d.Health.SavingsRatio, 1e-9)
	assert.Equal(t, 50, d.Health.Score)

	require.NotNil(t, d.Focus)
	assert.Equal(t, core.MonthKey("2024-03"), d.Focus.Month)
	require.Len(t, d.Focus.Expenses, 1)
	assert.Equal(t, "Celular (3/3)", d.Focus.Expenses[0].Description)

	assert.Len(t, d.Transactions, 7)
	require.Len(t, d.Undated, 1)
	assert.Equal(t, 1, CountWarnings(d.Warnings, core.ErrInvalidDate))
	assert.True(t, d.Range.Start.Equal(core.NewDate(2024, 1, 5).Time))
	assert.True(t, d.Range.End.Equal(core.NewDate(2024, 3, 20).Time))
	assert.Equal(t, Stats{Transactions: 7, Undated: 1, Warnings: 1, Months: 3}, d.Stats())
}

func TestRunRangeNarrowsListingOnly(t *testing.T) {
	p := DefaultParams()
	p.Range = core.DateRange{Start: core.NewDate(2024, 2, 1), End: core.NewDate(2024, 2, 29)}
	p.FocusMonth = "2024-01"

	d := Run(sampleRows(), p)
	assert.Len(t, d.Months, 3)
	assert.Len(t, d.Transactions, 2)
	assert.Equal(t, p.Range, d.Range)
	require.NotNil(t, d.Focus)
	assert.Equal(t, core.MonthKey("2024-01"), d.Focus.Month)
}

func TestRunEmpty(t *testing.T) {
	d := Run(nil, DefaultParams())
	assert.Empty(t, d.Months)
	assert.Nil(t, d.Latest)
	assert.Nil(t, d.Focus)
	assert.Equal(t, 0, d.Health.Score)
	assert.Equal(t, 0.0, d.Health.SavingsRatio)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"months":[]`)
	assert.NotContains(t, string(b), `"latest"`)
}

func TestParamsSettings(t *testing.T) {
	p := DefaultParams().WithSettings(core.Settings{AnnualRate: 13.65, RateAchieved: 100})
	assert.Equal(t, 13.65, p.AnnualRate)
	assert.Equal(t, core.Settings{AnnualRate: 13.65, RateAchieved: 100}, p.Settings())
}
