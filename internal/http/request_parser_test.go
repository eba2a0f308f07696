package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"painel/internal/core"
	"painel/internal/pipeline"
)

func TestParseDashboardQuery(t *testing.T) {
	base := pipeline.DefaultParams()

	tests := []struct {
		name  string
		query url.Values
		check func(t *testing.T, p pipeline.Params)
	}{
		{
			name:  "empty query keeps defaults",
			query: url.Values{},
			check: func(t *testing.T, p pipeline.Params) {
				if p != base {
					t.Errorf("got %+v, want %+v", p, base)
				}
			},
		},
		{
			name:  "brazilian date range",
			query: url.Values{"start": {"01/01/2024"}, "end": {"31/03/2024"}},
			check: func(t *testing.T, p pipeline.Params) {
				if !p.Range.Start.Equal(core.NewDate(2024, 1, 1).Time) || !p.Range.End.Equal(core.NewDate(2024, 3, 31).Time) {
					t.Errorf("range = %+v", p.Range)
				}
			},
		},
		{
			name:  "iso date range",
			query: url.Values{"start": {"2024-01-01"}, "end": {"2024-02-01"}},
			check: func(t *testing.T, p pipeline.Params) {
				if p.Range.Start.IsEmpty() || p.Range.End.IsEmpty() {
					t.Errorf("range = %+v", p.Range)
				}
			},
		},
		{
			name:  "half range is ignored",
			query: url.Values{"start": {"01/01/2024"}, "end": {"garbage"}},
			check: func(t *testing.T, p pipeline.Params) {
				if !p.Range.Start.IsEmpty() || !p.Range.End.IsEmpty() {
					t.Errorf("range = %+v, want empty", p.Range)
				}
			},
		},
		{
			name:  "focus month",
			query: url.Values{"month": {"2024-02"}},
			check: func(t *testing.T, p pipeline.Params) {
				if p.FocusMonth != "2024-02" {
					t.Errorf("FocusMonth = %q", p.FocusMonth)
				}
			},
		},
		{
			name:  "invalid month falls back",
			query: url.Values{"month": {"2024-13"}},
			check: func(t *testing.T, p pipeline.Params) {
				if p.FocusMonth != "" {
					t.Errorf("FocusMonth = %q", p.FocusMonth)
				}
			},
		},
		{
			name:  "rates with comma decimal",
			query: url.Values{"rate": {"10,5"}, "achieved": {"100"}},
			check: func(t *testing.T, p pipeline.Params) {
				if p.AnnualRate != 10.5 || p.RateAchieved != 100 {
					t.Errorf("rates = %v %v", p.AnnualRate, p.RateAchieved)
				}
			},
		},
		{
			name:  "invalid rates fall back",
			query: url.Values{"rate": {"abc"}, "achieved": {"-5"}},
			check: func(t *testing.T, p pipeline.Params) {
				if p.AnnualRate != base.AnnualRate || p.RateAchieved != base.RateAchieved {
					t.Errorf("rates = %v %v", p.AnnualRate, p.RateAchieved)
				}
			},
		},
		{
			name:  "non-finite rates fall back",
			query: url.Values{"rate": {"NaN"}, "achieved": {"Inf"}},
			check: func(t *testing.T, p pipeline.Params) {
				if p.AnnualRate != base.AnnualRate || p.RateAchieved != base.RateAchieved {
					t.Errorf("rates = %v %v", p.AnnualRate, p.RateAchieved)
				}
			},
		},
		{
			name:  "fill gaps",
			query: url.Values{"fill_gaps": {"true"}},
			check: func(t *testing.T, p pipeline.Params) {
				if !p.FillGaps {
					t.Error("FillGaps not set")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ParseDashboardQuery(tt.query, base))
		})
	}
}

func TestDecodeSettings(t *testing.T) {
	current := core.Settings{AnnualRate: 11.25, RateAchieved: 120}

	tests := []struct {
		name    string
		body    string
		want    core.Settings
		wantErr bool
	}{
		{"json both", `{"annual_rate": 10, "rate_achieved": 100}`, core.Settings{AnnualRate: 10, RateAchieved: 100}, false},
		{"json partial keeps current", `{"rate_achieved": 90}`, core.Settings{AnnualRate: 11.25, RateAchieved: 90}, false},
		{"form with comma", `annual_rate=12,5`, core.Settings{AnnualRate: 12.5, RateAchieved: 120}, false},
		{"invalid json", `{"annual_rate": "x"}`, core.Settings{}, true},
		{"invalid form value", `annual_rate=abc`, core.Settings{}, true},
		{"form NaN", `annual_rate=NaN`, core.Settings{}, true},
		{"form infinity", `rate_achieved=-Inf`, core.Settings{}, true},
		{"too large", strings.Repeat("a", maxBodyBytes+10), core.Settings{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(tt.body))
			got, err := DecodeSettings(req, current)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DecodeSettings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  manual\x00\x07 "); got != "manual" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
