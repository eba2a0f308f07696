// Package http provides HTTP server and handler implementations.
//
// This file turns query strings and request bodies into pipeline parameters.
// Invalid values never fail a read request: they fall back to the defaults.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"painel/internal/core"
	"painel/internal/pipeline"
)

const maxBodyBytes = 4 << 10

// isoDateLayout is what HTML date inputs send.
const isoDateLayout = "2006-01-02"

// ParseDashboardQuery applies the query overrides on top of base. Accepted keys:
// start, end (DD/MM/YYYY or YYYY-MM-DD), month (YYYY-MM), rate, achieved, fill_gaps.
func ParseDashboardQuery(query url.Values, base pipeline.Params) pipeline.Params {
	p := base

	start, startOK := parseDateParam(query.Get("start"))
	end, endOK := parseDateParam(query.Get("end"))
	if startOK && endOK {
		p.Range = core.DateRange{Start: start, End: end}
	}

	if m, err := core.ParseMonthKey(strings.TrimSpace(query.Get("month"))); err == nil {
		p.FocusMonth = m.String()
	}

	candidate := p.Settings()
	if v, ok := parseFloatParam(query.Get("rate")); ok {
		candidate.AnnualRate = v
	}
	if v, ok := parseFloatParam(query.Get("achieved")); ok {
		candidate.RateAchieved = v
	}
	if candidate.Validate() == nil {
		p = p.WithSettings(candidate)
	}

	if v := strings.TrimSpace(query.Get("fill_gaps")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			p.FillGaps = b
		}
	}

	return p
}

func parseDateParam(s string) (core.Date, bool) {
	s = sanitizeInput(s)
	if s == "" {
		return core.Date{}, false
	}
	if d, err := core.ParseDate(s); err == nil {
		return d, true
	}
	if t, err := time.Parse(isoDateLayout, s); err == nil {
		return core.Date{Time: t}, true
	}
	return core.Date{}, false
}

// parseFloatParam accepts "11.25" and "11,25". NaN and infinities are rejected.
func parseFloatParam(s string) (float64, bool) {
	s = strings.Replace(sanitizeInput(s), ",", ".", 1)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// DecodeSettings reads a settings update from a JSON or form body. Missing
// fields keep the values of current.
func DecodeSettings(r *http.Request, current core.Settings) (core.Settings, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return core.Settings{}, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return core.Settings{}, errors.New("request body too large")
	}

	s := current
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var in struct {
			AnnualRate   *float64 `json:"annual_rate"`
			RateAchieved *float64 `json:"rate_achieved"`
		}
		if err := json.Unmarshal(body, &in); err != nil {
			return core.Settings{}, fmt.Errorf("invalid JSON: %w", err)
		}
		if in.AnnualRate != nil {
			s.AnnualRate = *in.AnnualRate
		}
		if in.RateAchieved != nil {
			s.RateAchieved = *in.RateAchieved
		}
		return s, nil
	}

	form, err := url.ParseQuery(trimmed)
	if err != nil {
		return core.Settings{}, fmt.Errorf("invalid form: %w", err)
	}
	for key, dst := range map[string]*float64{"annual_rate": &s.AnnualRate, "rate_achieved": &s.RateAchieved} {
		raw := form.Get(key)
		if raw == "" {
			continue
		}
		v, ok := parseFloatParam(raw)
		if !ok {
			return core.Settings{}, fmt.Errorf("invalid %s %q", key, raw)
		}
		*dst = v
	}
	return s, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}
