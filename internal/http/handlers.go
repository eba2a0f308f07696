package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"painel/internal/core"
	applog "painel/internal/log"
	"painel/internal/pipeline"
	"painel/internal/services"
)

const requestTimeout = 15 * time.Second

// dashboard runs the pipeline with the request's parameters, writing a 502
// when the backend cannot be read.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) (pipeline.Dashboard, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	params := ParseDashboardQuery(r.URL.Query(), s.svc.BaseParams(ctx))
	d, err := s.svc.Dashboard(ctx, params)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Dashboard refresh failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRefresh)
		BadGatewayError("could not read transactions").Write(w)
		return pipeline.Dashboard{}, false
	}
	return d, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(newDashboardResponse(d)).Write(w)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(monthsResponse{
		Months:      d.Months,
		Latest:      d.Latest,
		Health:      d.Health,
		MonthlyRate: d.MonthlyRate,
		Settings:    d.Settings,
	}).Write(w)
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(focusResponse{
		Focus:           d.Focus,
		AvailableMonths: availableMonths(d),
	}).Write(w)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(transactionsResponse{
		Range:        d.Range,
		Span:         d.Span,
		Count:        len(d.Transactions),
		Transactions: d.Transactions,
		Undated:      d.Undated,
		Warnings:     d.Warnings,
	}).Write(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	reason := sanitizeInput(r.URL.Query().Get("reason"))
	if reason == "" || len(reason) > 64 {
		reason = "manual"
	}
	res := s.svc.Refresh(r.Context(), reason)
	NewJSONResponse().Status(http.StatusAccepted).Body(res).Write(w)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Settings(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Load settings failed", applog.FieldError, err)
		InternalServerError("could not load settings").Write(w)
		return
	}
	NewJSONResponse().Body(settings).Write(w)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, err := s.svc.Settings(ctx)
	if err != nil {
		InternalServerError("could not load settings").Write(w)
		return
	}

	updated, err := DecodeSettings(r, current)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	switch err := s.svc.SaveSettings(ctx, updated); {
	case err == nil:
		NewJSONResponse().Body(updated).Write(w)
	case errors.Is(err, core.ErrInvalidSettings):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, services.ErrSettingsUnavailable):
		ErrorResponse(http.StatusNotImplemented, "settings cannot be saved with this backend").Write(w)
	default:
		applog.FromContext(ctx).ErrorContext(ctx, "Save settings failed", applog.FieldError, err)
		InternalServerError("could not save settings").Write(w)
	}
}

type statusResponse struct {
	Backend   string `json:"backend"`
	Requests  any    `json:"requests"`
	RateLimit any    `json:"rate_limit"`
	Security  any    `json:"security"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(statusResponse{
		Backend:   s.svc.Backend(),
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ready(ctx); err != nil {
		ServiceUnavailableError("backend not ready").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}
