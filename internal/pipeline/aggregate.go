package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"painel/internal/core"
)

// AggregateOptions tunes monthly aggregation.
type AggregateOptions struct {
	// FillGaps inserts zero buckets for months without transactions between
	// the first and the last observed month.
	FillGaps bool
}

// AggregateMonthly groups transactions by calendar month and sums income,
// expense and investment contributions. Only income and expense rows open a
// month; rows of unknown kind are ignored. Buckets come back in chronological
// order with the running cumulative balance filled in.
func AggregateMonthly(txs []core.Transaction, opts AggregateOptions) []core.MonthlyBucket {
	byMonth := make(map[core.MonthKey]*core.MonthlyBucket)
	for _, tx := range txs {
		if tx.Date.IsEmpty() {
			continue
		}
		if tx.Kind != core.KindIncome && tx.Kind != core.KindExpense {
			continue
		}

		key := tx.Date.MonthKey()
		b, ok := byMonth[key]
		if !ok {
			nb := core.NewMonthlyBucket(key)
			b = &nb
			byMonth[key] = b
		}

		switch tx.Kind {
		case core.KindIncome:
			b.Income = b.Income.Add(tx.Amount)
		case core.KindExpense:
			b.Expense = b.Expense.Add(tx.Amount)
			if tx.IsInvestment() {
				b.Contribution = b.Contribution.Add(tx.Amount)
			}
		}
	}

	if len(byMonth) == 0 {
		return []core.MonthlyBucket{}
	}

	keys := make([]core.MonthKey, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	if opts.FillGaps {
		keys = contiguousMonths(keys[0], keys[len(keys)-1])
	}

	out := make([]core.MonthlyBucket, 0, len(keys))
	for _, k := range keys {
		if b, ok := byMonth[k]; ok {
			out = append(out, *b)
		} else {
			out = append(out, core.NewMonthlyBucket(k))
		}
	}
	return withBalances(out)
}

// withBalances fills Balance and CumulativeBalance starting from a zero baseline.
func withBalances(buckets []core.MonthlyBucket) []core.MonthlyBucket {
	if len(buckets) == 0 {
		return buckets
	}
	cumulative := decimal.Zero
	for i := range buckets {
		buckets[i].Balance = buckets[i].Income.Sub(buckets[i].Expense)
		cumulative = cumulative.Add(buckets[i].Balance)
		buckets[i].CumulativeBalance = cumulative
	}
	return buckets
}

func contiguousMonths(first, last core.MonthKey) []core.MonthKey {
	var keys []core.MonthKey
	for k := first; k <= last; k = k.Next() {
		keys = append(keys, k)
	}
	return keys
}
