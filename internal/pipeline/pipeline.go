package pipeline

import (
	"time"

	"painel/internal/core"
)

const (
	DefaultAnnualRate   = 11.25
	DefaultRateAchieved = 120.0
)

// Params carries every user-adjustable input of a run.
type Params struct {
	AnnualRate   float64
	RateAchieved float64
	// Range filters the transaction listing. A zero range means the full span.
	Range core.DateRange
	// FocusMonth selects the drill-down month ("YYYY-MM"); empty or unknown means the latest.
	FocusMonth string
	FillGaps   bool
}

func DefaultParams() Params {
	return Params{
		AnnualRate:   DefaultAnnualRate,
		RateAchieved: DefaultRateAchieved,
	}
}

// Settings returns the simulation parameters of p.
func (p Params) Settings() core.Settings {
	return core.Settings{AnnualRate: p.AnnualRate, RateAchieved: p.RateAchieved}
}

// WithSettings returns p with the simulation parameters replaced.
func (p Params) WithSettings(s core.Settings) Params {
	p.AnnualRate = s.AnnualRate
	p.RateAchieved = s.RateAchieved
	return p
}

// Dashboard is the immutable result of one refresh.
type Dashboard struct {
	Months       []core.MonthlyBucket `json:"months"`
	Latest       *core.Snapshot       `json:"latest,omitempty"`
	Health       core.Health          `json:"health"`
	MonthlyRate  float64              `json:"monthly_rate"`
	Settings     core.Settings        `json:"settings"`
	Focus        *core.MonthFocus     `json:"focus,omitempty"`
	Transactions []core.Transaction   `json:"transactions"`
	Undated      []core.Transaction   `json:"undated"`
	Warnings     []core.ParseWarning  `json:"warnings"`
	Span         core.DateRange       `json:"span"`
	Range        core.DateRange       `json:"range"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

// Stats summarises a dashboard for logging.
type Stats struct {
	Transactions int
	Undated      int
	Warnings     int
	Months       int
}

func (d Dashboard) Stats() Stats {
	return Stats{
		Transactions: len(d.Transactions),
		Undated:      len(d.Undated),
		Warnings:     len(d.Warnings),
		Months:       len(d.Months),
	}
}

// Run executes the whole pipeline over rows. The monthly table covers every
// dated transaction; params.Range only narrows the transaction listing.
func Run(rows []core.RawRow, params Params) Dashboard {
	normalized := Normalize(rows)
	expanded := ExpandInstallments(normalized.Transactions)

	rate := MonthlyRate(params.AnnualRate, params.RateAchieved)
	months := AggregateMonthly(expanded, AggregateOptions{FillGaps: params.FillGaps})
	months = ApplySimulation(months, rate)

	d := Dashboard{
		Months:       months,
		Health:       ComputeHealth(months),
		MonthlyRate:  rate,
		Settings:     params.Settings(),
		Transactions: FilterByDateRange(expanded, params.Range),
		Undated:      normalized.Undated,
		Warnings:     normalized.Warnings,
		Span:         DataSpan(expanded),
	}
	if d.Undated == nil {
		d.Undated = []core.Transaction{}
	}
	if d.Warnings == nil {
		d.Warnings = []core.ParseWarning{}
	}
	if params.Range.Complete() {
		d.Range = params.Range
	} else {
		d.Range = d.Span
	}

	if snap, ok := LatestSnapshot(months, rate); ok {
		d.Latest = &snap
	}
	if month := DefaultFocusMonth(months, params.FocusMonth); month != "" {
		focus := MonthFocus(expanded, month)
		d.Focus = &focus
	}
	return d
}
