package pipeline

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"painel/internal/core"
)

// ExpandInstallments replaces every transaction paid in N > 1 installments with
// N monthly transactions of Amount/N, dated at consecutive monthly offsets
// from the purchase date. The split is equal; any rounding remainder is not
// redistributed. The result is sorted by date and every transaction in it
// has Installments == 1. The input slice is not modified.
func ExpandInstallments(txs []core.Transaction) []core.Transaction {
	size := 0
	for _, tx := range txs {
		size += max(tx.Installments, 1)
	}

	out := make([]core.Transaction, 0, size)
	for _, tx := range txs {
		if tx.Installments <= 1 {
			tx.Installments = 1
			out = append(out, tx)
			continue
		}

		n := tx.Installments
		share := tx.Amount.Div(decimal.NewFromInt(int64(n)))
		for i := 0; i < n; i++ {
			part := tx
			part.Amount = share
			part.Date = tx.Date.AddMonths(i)
			part.Description = fmt.Sprintf("%s (%d/%d)", tx.Description, i+1, n)
			part.Installments = 1
			part.InstallmentIndex = i + 1
			part.InstallmentCount = n
			out = append(out, part)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out
}
