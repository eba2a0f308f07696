package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"painel/internal/cache"
	"painel/internal/core"
	applog "painel/internal/log"
	"painel/internal/pipeline"
	ports "painel/internal/sheets"
)

// ErrSettingsUnavailable is returned by SaveSettings when no settings store is configured.
var ErrSettingsUnavailable = errors.New("settings store not configured")

// Publisher sends refresh requests to the sync worker.
type Publisher interface {
	PublishRefresh(ctx context.Context, reason string) (string, error)
}

// Pinger is implemented by sources that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a DashboardService. Only Source is required.
type Options struct {
	Source    ports.TransactionSource
	Backend   string
	Settings  ports.SettingsStore
	Publisher Publisher
	Defaults  pipeline.Params
	CacheTTL  time.Duration
	Logger    *applog.Logger
}

// RefreshResult reports what a manual refresh did.
type RefreshResult struct {
	Invalidated int    `json:"invalidated"`
	Published   bool   `json:"published"`
	MessageID   string `json:"message_id,omitempty"`
}

// DashboardService fetches rows from the configured backend and runs the
// pipeline over them. Concurrent fetches of the same backend are collapsed
// into one read.
type DashboardService struct {
	source    ports.TransactionSource
	backend   string
	settings  ports.SettingsStore
	publisher Publisher
	defaults  pipeline.Params

	rows  *cache.LRUCache[[]core.RawRow]
	group singleflight.Group
	// cacheMu guards generation, which Refresh bumps so that a read
	// started before it never repopulates the cache.
	cacheMu    sync.Mutex
	generation uint64

	logger *applog.Logger
	events *applog.StructuredLogger
	now    func() time.Time
}

func NewDashboardService(o Options) *DashboardService {
	logger := o.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentDashboard)

	defaults := o.Defaults
	if defaults == (pipeline.Params{}) {
		defaults = pipeline.DefaultParams()
	}
	backend := o.Backend
	if backend == "" {
		backend = "default"
	}

	return &DashboardService{
		source:    o.Source,
		backend:   backend,
		settings:  o.Settings,
		publisher: o.Publisher,
		defaults:  defaults,
		rows:      cache.NewLRUCache[[]core.RawRow](4, o.CacheTTL),
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

// Cache exposes the row cache so it can be registered with a cache.Manager.
func (s *DashboardService) Cache() cache.Cleaner {
	return s.rows
}

// Rows returns the raw sheet rows, from cache when fresh. The returned
// slice is shared and must not be modified.
func (s *DashboardService) Rows(ctx context.Context) ([]core.RawRow, error) {
	if rows, ok := s.rows.Get(s.backend); ok {
		s.logger.DebugContext(ctx, "Rows served from cache", applog.FieldCacheHit, true)
		return rows, nil
	}

	ch := s.group.DoChan(s.backend, func() (interface{}, error) {
		// detached so one caller giving up doesn't fail the others
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		gen := s.currentGeneration()
		rows, err := s.source.ReadRows(fetchCtx)
		if err != nil {
			return nil, err
		}
		s.cacheRows(gen, rows)
		return rows, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.events.LogError(ctx, "Failed to read transactions", res.Err, applog.OpRead,
				applog.NewFields().WithBackend(s.backend))
			return nil, fmt.Errorf("read transactions: %w", res.Err)
		}
		return res.Val.([]core.RawRow), nil
	}
}

func (s *DashboardService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// cacheRows stores rows read during generation gen, unless a refresh has
// happened since.
func (s *DashboardService) cacheRows(gen uint64, rows []core.RawRow) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if gen != s.generation {
		s.logger.Debug("Discarding rows read before a refresh")
		return
	}
	s.rows.Set(s.backend, rows)
}

// BaseParams returns the configured defaults with any saved simulation
// settings applied.
func (s *DashboardService) BaseParams(ctx context.Context) pipeline.Params {
	settings, err := s.Settings(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Using default simulation settings", applog.FieldError, err)
		return s.defaults
	}
	return s.defaults.WithSettings(settings)
}

// Dashboard fetches the rows and computes one dashboard snapshot.
func (s *DashboardService) Dashboard(ctx context.Context, params pipeline.Params) (pipeline.Dashboard, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return pipeline.Dashboard{}, err
	}

	d := pipeline.Run(rows, params)
	d.GeneratedAt = s.now().UTC()

	st := d.Stats()
	s.events.LogPipeline(ctx, s.backend, len(rows), st.Transactions, st.Undated, st.Warnings, st.Months)
	s.events.LogParseWarnings(ctx, d.Warnings)
	return d, nil
}

// Refresh drops cached rows and asks the worker, when there is one, to pull
// the sheet again. A failed publish is logged and does not fail the refresh.
func (s *DashboardService) Refresh(ctx context.Context, reason string) RefreshResult {
	s.cacheMu.Lock()
	res := RefreshResult{Invalidated: s.rows.Size()}
	s.generation++
	s.rows.Purge()
	s.group.Forget(s.backend)
	s.cacheMu.Unlock()

	if s.publisher == nil {
		s.logger.InfoContext(ctx, "Cache invalidated", applog.FieldOperation, applog.OpRefresh)
		return res
	}

	id, err := s.publisher.PublishRefresh(ctx, reason)
	if err != nil {
		s.events.LogError(ctx, "Failed to publish refresh message", err, applog.OpPublish, nil)
		return res
	}
	res.Published = true
	res.MessageID = id
	return res
}

// Settings returns the saved simulation settings, or the configured
// defaults when none were saved.
func (s *DashboardService) Settings(ctx context.Context) (core.Settings, error) {
	if s.settings == nil {
		return s.defaults.Settings(), nil
	}
	saved, ok, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return s.defaults.Settings(), nil
	}
	return saved, nil
}

func (s *DashboardService) SaveSettings(ctx context.Context, settings core.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if s.settings == nil {
		return ErrSettingsUnavailable
	}
	if err := s.settings.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.logger.InfoContext(ctx, "Simulation settings updated", applog.FieldOperation, applog.OpUpdate)
	return nil
}

// Ready reports whether the backend can serve reads.
func (s *DashboardService) Ready(ctx context.Context) error {
	if p, ok := s.source.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Backend names the configured data backend.
func (s *DashboardService) Backend() string {
	return s.backend
}
