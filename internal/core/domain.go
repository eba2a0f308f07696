package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "Receita"
	KindExpense Kind = "Despesa"
	KindUnknown Kind = ""
)

// DateLayout is the day/month/year layout used by the spreadsheet.
// Zero padding is optional on day and month.
const DateLayout = "2/1/2006"

// investmentMarker flags a category as an investment contribution.
const investmentMarker = "investimento"

type (
	Kind string

	Date struct {
		time.Time
	}

	// RawRow is one spreadsheet row as text, in column order:
	// date, description, category, amount, kind, installments plus two unused columns.
	RawRow struct {
		Row             int    `json:"row"`
		DateText        string `json:"date"`
		Description     string `json:"description"`
		Category        string `json:"category"`
		AmountText      string `json:"amount"`
		KindText        string `json:"kind"`
		InstallmentText string `json:"installments"`
		Extra1          string `json:"extra1,omitempty"`
		Extra2          string `json:"extra2,omitempty"`
	}

	Transaction struct {
		Row          int             `json:"row"`
		Date         Date            `json:"date"`
		Description  string          `json:"description"`
		Category     string          `json:"category"`
		Amount       decimal.Decimal `json:"amount"`
		Kind         Kind            `json:"kind"`
		Installments int             `json:"installments"`
		// Set on rows produced by installment expansion.
		InstallmentIndex int `json:"installment_index,omitempty"`
		InstallmentCount int `json:"installment_count,omitempty"`
	}

	// ParseWarning records a field that could not be parsed and was replaced by its default.
	ParseWarning struct {
		Row    int    `json:"row"`
		Field  string `json:"field"`
		Value  string `json:"value"`
		Reason string `json:"reason"`
		Err    error  `json:"-"`
	}
)

var (
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInstallments = errors.New("invalid installment count")
	ErrUnknownKind         = errors.New("unknown transaction kind")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidSettings     = errors.New("invalid settings")
)

// ParseKind maps the spreadsheet "Tipo" column to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "receita", "income":
		return KindIncome, nil
	case "despesa", "expense":
		return KindExpense, nil
	default:
		return KindUnknown, ErrUnknownKind
	}
}

// IsInvestment reports whether a category names an investment contribution.
func IsInvestment(category string) bool {
	return strings.Contains(strings.ToLower(category), investmentMarker)
}

// IsBlank reports whether every column of the row is empty.
func (r RawRow) IsBlank() bool {
	for _, v := range []string{r.DateText, r.Description, r.Category, r.AmountText, r.KindText, r.InstallmentText} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (t Transaction) IsInvestment() bool {
	return IsInvestment(t.Category)
}

// IsContribution reports whether the transaction feeds the investment simulation.
func (t Transaction) IsContribution() bool {
	return t.Kind == KindExpense && t.IsInvestment()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a day/month/year string strictly.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (unparsed source value)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// AddMonths moves the date n calendar months forward, clamping the day to the
// last day of the target month (31 Jan + 1 month = 28/29 Feb).
func (d Date) AddMonths(n int) Date {
	year, month, day := d.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return Date{Time: time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)}
}

// MonthKey returns the "YYYY-MM" period the date belongs to.
func (d Date) MonthKey() MonthKey {
	return MonthKey(d.Format("2006-01"))
}

// String formats the date the way the spreadsheet does.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d.Time = t
	return nil
}

func (w ParseWarning) Error() string {
	return fmt.Sprintf("row %d: %s %q: %s", w.Row, w.Field, w.Value, w.Reason)
}

func (w ParseWarning) Unwrap() error {
	return w.Err
}
