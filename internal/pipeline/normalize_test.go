package pipeline

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/internal/core"
)

func raw(row int, date, desc, cat, amount, kind, inst string) core.RawRow {
	return core.RawRow{
		Row:             row,
		DateText:        date,
		Description:     desc,
		Category:        cat,
		AmountText:      amount,
		KindText:        kind,
		InstallmentText: inst,
	}
}

func TestParseRow(t *testing.T) {
	tx, warnings := ParseRow(raw(2, "15/01/2024", " Mercado ", "Alimentação", "R$ 1.234,56", "Despesa", "1"))
	require.Empty(t, warnings)
	assert.Equal(t, 2, tx.Row)
	assert.True(t, tx.Date.Equal(core.NewDate(2024, 1, 15).Time))
	assert.Equal(t, "Mercado", tx.Description)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("1234.56")))
	assert.Equal(t, core.KindExpense, tx.Kind)
	assert.Equal(t, 1, tx.Installments)
}

func TestParseRowDefaults(t *testing.T) {
	cases := []struct {
		name         string
		row          core.RawRow
		field        string
		target       error
		installments int
	}{
		{"bad date", raw(3, "2024-01-15", "x", "y", "10", "Despesa", ""), "date", core.ErrInvalidDate, 1},
		{"bad amount", raw(4, "01/01/2024", "x", "y", "dez reais", "Despesa", ""), "amount", core.ErrInvalidAmount, 1},
		{"bad kind", raw(5, "01/01/2024", "x", "y", "10", "Transferência", ""), "kind", core.ErrUnknownKind, 1},
		{"bad installments", raw(6, "01/01/2024", "x", "y", "10", "Despesa", "três"), "installments", core.ErrInvalidInstallments, 1},
		{"zero installments", raw(7, "01/01/2024", "x", "y", "10", "Despesa", "0"), "installments", core.ErrInvalidInstallments, 1},
		{"huge installments", raw(8, "01/01/2024", "x", "y", "10", "Despesa", "9999"), "installments", core.ErrInvalidInstallments, MaxInstallments},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx, warnings := ParseRow(tc.row)
			require.Len(t, warnings, 1)
			assert.Equal(t, tc.field, warnings[0].Field)
			assert.Equal(t, tc.row.Row, warnings[0].Row)
			assert.True(t, errors.Is(warnings[0], tc.target))
			assert.Equal(t, tc.installments, tx.Installments)
			assert.False(t, tx.Amount.IsNegative())
		})
	}
}

func TestParseInstallments(t *testing.T) {
	cases := []struct {
		in   string
		want int
		warn bool
	}{
		{"", 1, false},
		{"1", 1, false},
		{"3", 3, false},
		{" 12 ", 12, false},
		{"3,0", 3, false},
		{"3.0", 3, false},
		{"-2", 1, true},
		{"abc", 1, true},
		{"1e9", MaxInstallments, true},
	}
	for _, tc := range cases {
		got, _, err := parseInstallments(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.warn, err != nil, tc.in)
	}
}

func TestNormalize(t *testing.T) {
	rows := []core.RawRow{
		raw(2, "10/01/2024", "Salário", "Trabalho", "5.000,00", "Receita", ""),
		{Row: 3},
		raw(4, "sem data", "Aluguel", "Casa", "1.500,00", "Despesa", ""),
		raw(5, "12/01/2024", "CDB", "Investimento", "1.000,00", "Despesa", ""),
	}

	res := Normalize(rows)
	require.Len(t, res.Transactions, 2)
	require.Len(t, res.Undated, 1)
	assert.Equal(t, "Aluguel", res.Undated[0].Description)
	assert.Equal(t, 1, CountWarnings(res.Warnings, core.ErrInvalidDate))
	assert.Equal(t, 0, CountWarnings(res.Warnings, core.ErrInvalidAmount))
}

func TestNormalizeEmpty(t *testing.T) {
	res := Normalize(nil)
	assert.Empty(t, res.Transactions)
	assert.Empty(t, res.Undated)
	assert.Empty(t, res.Warnings)
}
