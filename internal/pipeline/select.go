package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"painel/internal/core"
)

// UncategorizedLabel names expenses with an empty category in breakdowns.
const UncategorizedLabel = "Sem categoria"

// FilterByDateRange keeps transactions dated within the inclusive range. An
// incomplete or inverted range returns the input unfiltered.
func FilterByDateRange(txs []core.Transaction, r core.DateRange) []core.Transaction {
	if !r.Complete() {
		return txs
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Date.IsEmpty() || !r.Contains(tx.Date) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// DataSpan returns the range covering every dated transaction.
func DataSpan(txs []core.Transaction) core.DateRange {
	var span core.DateRange
	for _, tx := range txs {
		if tx.Date.IsEmpty() {
			continue
		}
		if span.Start.IsEmpty() || tx.Date.Before(span.Start.Time) {
			span.Start = tx.Date
		}
		if span.End.IsEmpty() || tx.Date.After(span.End.Time) {
			span.End = tx.Date
		}
	}
	return span
}

// AvailableMonths lists the months of the table, newest first.
func AvailableMonths(buckets []core.MonthlyBucket) []core.MonthKey {
	months := make([]core.MonthKey, len(buckets))
	for i, b := range buckets {
		months[len(buckets)-1-i] = b.Month
	}
	return months
}

// DefaultFocusMonth picks the requested month when the table has it and the
// most recent month otherwise. It returns "" on an empty table.
func DefaultFocusMonth(buckets []core.MonthlyBucket, requested string) core.MonthKey {
	if len(buckets) == 0 {
		return ""
	}
	if m, err := core.ParseMonthKey(requested); err == nil {
		for _, b := range buckets {
			if b.Month == m {
				return m
			}
		}
	}
	return buckets[len(buckets)-1].Month
}

// MonthFocus selects one month of expanded transactions, split by kind, with
// the month's expenses grouped by category in descending amount order.
func MonthFocus(txs []core.Transaction, month core.MonthKey) core.MonthFocus {
	focus := core.MonthFocus{
		Month:        month,
		IncomeTotal:  decimal.Zero,
		ExpenseTotal: decimal.Zero,
		Income:       []core.Transaction{},
		Expenses:     []core.Transaction{},
		ByCategory:   []core.CategoryAmount{},
		Transactions: []core.Transaction{},
	}

	byCategory := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Date.IsEmpty() || tx.Date.MonthKey() != month {
			continue
		}
		focus.Transactions = append(focus.Transactions, tx)
		switch tx.Kind {
		case core.KindIncome:
			focus.Income = append(focus.Income, tx)
			focus.IncomeTotal = focus.IncomeTotal.Add(tx.Amount)
		case core.KindExpense:
			focus.Expenses = append(focus.Expenses, tx)
			focus.ExpenseTotal = focus.ExpenseTotal.Add(tx.Amount)
			name := tx.Category
			if name == "" {
				name = UncategorizedLabel
			}
			byCategory[name] = byCategory[name].Add(tx.Amount)
		}
	}

	for name, amount := range byCategory {
		if !amount.IsPositive() {
			continue
		}
		ca := core.CategoryAmount{Name: name, Amount: amount}
		if focus.ExpenseTotal.IsPositive() {
			ca.Share, _ = amount.Div(focus.ExpenseTotal).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		}
		focus.ByCategory = append(focus.ByCategory, ca)
	}
	sort.Slice(focus.ByCategory, func(i, j int) bool {
		a, b := focus.ByCategory[i], focus.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})

	sortByDate(focus.Transactions)
	return focus
}

func sortByDate(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date.Time)
	})
}
