// Package pipeline turns spreadsheet rows into the dashboard's monthly figures.
//
// Every stage is a pure function over an immutable input slice: rows are
// normalized, installment purchases expanded, months aggregated, the
// investment balance simulated and finally metrics and drill-downs selected.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"painel/internal/core"
)

// MaxInstallments caps the installment count of a single row.
const MaxInstallments = 360

// NormalizeResult holds the outcome of parsing a batch of raw rows.
type NormalizeResult struct {
	// Transactions with a valid date, in source order.
	Transactions []core.Transaction
	// Undated rows are kept for listing but excluded from every total.
	Undated  []core.Transaction
	Warnings []core.ParseWarning
}

// ParseRow converts one raw row into a transaction. It never fails: fields
// that cannot be parsed fall back to their defaults and are reported as warnings.
func ParseRow(row core.RawRow) (core.Transaction, []core.ParseWarning) {
	var warnings []core.ParseWarning
	warn := func(field, value, reason string, err error) {
		warnings = append(warnings, core.ParseWarning{Row: row.Row, Field: field, Value: value, Reason: reason, Err: err})
	}

	tx := core.Transaction{
		Row:          row.Row,
		Description:  strings.TrimSpace(row.Description),
		Category:     strings.TrimSpace(row.Category),
		Amount:       decimal.Zero,
		Installments: 1,
	}

	date, err := core.ParseDate(row.DateText)
	if err != nil {
		warn("date", row.DateText, "expected day/month/year", err)
	}
	tx.Date = date

	amount, err := core.ParseBRL(row.AmountText)
	if err != nil {
		warn("amount", row.AmountText, "defaulted to zero", err)
	}
	tx.Amount = amount

	kind, err := core.ParseKind(row.KindText)
	if err != nil {
		warn("kind", row.KindText, "not Receita or Despesa", err)
	}
	tx.Kind = kind

	n, reason, err := parseInstallments(row.InstallmentText)
	if err != nil {
		warn("installments", row.InstallmentText, reason, err)
	}
	tx.Installments = n

	return tx, warnings
}

// parseInstallments reads the installment column. Empty means a single payment.
func parseInstallments(s string) (int, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1, "", nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Sheets export whole numbers as "3,0" or "3.0".
		f, ferr := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 1, "defaulted to 1", fmt.Errorf("%w: %q", core.ErrInvalidInstallments, s)
		}
		if f > MaxInstallments {
			f = MaxInstallments + 1
		}
		n = int(f)
	}
	switch {
	case n < 1:
		return 1, "must be at least 1", fmt.Errorf("%w: %d", core.ErrInvalidInstallments, n)
	case n > MaxInstallments:
		return MaxInstallments, fmt.Sprintf("capped at %d", MaxInstallments), fmt.Errorf("%w: %d", core.ErrInvalidInstallments, n)
	}
	return n, "", nil
}

// Normalize parses every non-blank row. Rows without a valid date go to Undated.
func Normalize(rows []core.RawRow) NormalizeResult {
	res := NormalizeResult{
		Transactions: make([]core.Transaction, 0, len(rows)),
	}
	for _, row := range rows {
		if row.IsBlank() {
			continue
		}
		tx, warnings := ParseRow(row)
		res.Warnings = append(res.Warnings, warnings...)
		if tx.Date.IsEmpty() {
			res.Undated = append(res.Undated, tx)
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res
}

// CountWarnings returns how many warnings wrap target.
func CountWarnings(warnings []core.ParseWarning, target error) int {
	n := 0
	for _, w := range warnings {
		if errors.Is(w, target) {
			n++
		}
	}
	return n
}
