// Package httpapi serves the scenario engine over HTTP.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/idhash"
	"github.com/limeking/psa-next-hts-coin/internal/observability"
	"github.com/limeking/psa-next-hts-coin/internal/orchestrator"
	"github.com/limeking/psa-next-hts-coin/internal/reporting"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
	"github.com/limeking/psa-next-hts-coin/internal/strategy"
	"github.com/limeking/psa-next-hts-coin/internal/symbols"
)

const maxRequestBytes = 4 << 20

// Options for creating Server.
type Options struct {
	// Required stores
	CandleStore storage.CandleStore
	Watchlists  storage.WatchlistStore

	// Optional stores. Without a run store results are not persisted.
	ComboStore storage.ComboStore
	ThemeStore storage.ThemeStore
	RunStore   storage.ScenarioRunStore

	Registry   *strategy.Registry // defaults to strategy.Default
	Hub        *Hub               // nil disables progress broadcast
	Logger     zerolog.Logger
	Verbose    bool
	MaxSymbols int // 0 means unlimited

	Now func() time.Time // Injectable clock
}

// Server handles the backtest API.
type Server struct {
	opts     Options
	registry *strategy.Registry
	resolver *symbols.Resolver
	logger   zerolog.Logger
	now      func() time.Time
	started  time.Time

	inFlight atomic.Int64

	mu      sync.RWMutex
	lastRun *runSummary
}

type runSummary struct {
	RunID       string    `json:"runId"`
	FinishedAt  time.Time `json:"finishedAt"`
	Symbols     int       `json:"symbols"`
	TotalTrades int       `json:"totalTrades"`
	Errors      int       `json:"errors"`
}

// NewServer creates a server.
func NewServer(opts Options) *Server {
	reg := opts.Registry
	if reg == nil {
		reg = strategy.Default
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Server{
		opts:     opts,
		registry: reg,
		resolver: symbols.NewResolver(opts.Watchlists, opts.Logger),
		logger:   opts.Logger.With().Str("component", "httpapi").Logger(),
		now:      now,
		started:  now(),
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/backtest/run_scenario", instrument("run_scenario", s.handleRunScenario))
	mux.Handle("GET /api/strategies", instrument("strategies", s.handleStrategies))
	mux.Handle("GET /api/runs", instrument("runs", s.handleListRuns))
	mux.Handle("GET /api/runs/{id}", instrument("run", s.handleGetRun))
	mux.Handle("GET /api/runs/{id}/report", instrument("run_report", s.handleRunReport))
	mux.Handle("GET /api/themes", instrument("themes", s.handleGetThemes))
	mux.Handle("PUT /api/themes", instrument("themes_update", s.handlePutThemes))
	mux.Handle("GET /health", instrument("health", s.handleHealth))
	mux.Handle("GET /status", instrument("status", s.handleStatus))
	mux.Handle("GET /metrics", observability.Handler())
	if s.opts.Hub != nil {
		mux.HandleFunc("GET /ws/progress", s.opts.Hub.ServeWS)
	}
	return mux
}

func (s *Server) handleRunScenario(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var req orchestrator.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	syms, err := s.resolver.Resolve(ctx, req.Scope, req.WatchlistName, req.Symbols)
	if err != nil {
		s.logger.Error().Err(err).Msg("resolve symbols")
		writeError(w, http.StatusInternalServerError, "resolve symbols: "+err.Error())
		return
	}
	if s.opts.MaxSymbols > 0 && len(syms) > s.opts.MaxSymbols {
		syms = syms[:s.opts.MaxSymbols]
	}

	now := s.now()
	runID := idhash.ComputeRunID(body, now.UnixMilli())
	sc := req.Build(syms, now)

	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	res, err := s.newOrchestrator(runID).Run(ctx, sc)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn().Str("run_id", runID).Err(err).Msg("scenario canceled")
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error().Str("run_id", runID).Err(err).Msg("scenario failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	res.RunID = runID

	s.persist(ctx, runID, now, body, res)
	s.recordLastRun(runID, res)

	s.logger.Info().
		Str("run_id", runID).
		Int("symbols", res.Summary.Symbols).
		Int("trades", res.Summary.TotalTrades).
		Int("errors", len(res.Errors)).
		Msg("scenario completed")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) newOrchestrator(runID string) *orchestrator.Orchestrator {
	var progress func(orchestrator.Progress)
	if s.opts.Hub != nil {
		hub := s.opts.Hub
		progress = func(p orchestrator.Progress) {
			hub.Publish(ProgressEvent{RunID: runID, Step: p.Step, Symbol: p.Symbol, Done: p.Done, Total: p.Total})
		}
	}
	return orchestrator.New(orchestrator.Options{
		CandleStore: s.opts.CandleStore,
		ComboStore:  s.opts.ComboStore,
		ThemeStore:  s.opts.ThemeStore,
		Registry:    s.registry,
		Logger:      &s.logger,
		Verbose:     s.opts.Verbose,
		Progress:    progress,
	})
}

// persist stores the run and its trades. Failures are logged and the
// result is still returned to the caller.
func (s *Server) persist(ctx context.Context, runID string, now time.Time, body []byte, res *domain.ScenarioResult) {
	if s.opts.RunStore == nil {
		return
	}
	run := orchestrator.NewScenarioRun(runID, now.UnixMilli(), body, res)
	if err := s.opts.RunStore.Insert(ctx, run, orchestrator.Flatten(runID, res)); err != nil {
		s.logger.Error().Str("run_id", runID).Err(err).Msg("persist run")
	}
}

func (s *Server) recordLastRun(runID string, res *domain.ScenarioResult) {
	s.mu.Lock()
	s.lastRun = &runSummary{
		RunID:       runID,
		FinishedAt:  s.now(),
		Symbols:     res.Summary.Symbols,
		TotalTrades: res.Summary.TotalTrades,
		Errors:      len(res.Errors),
	}
	s.mu.Unlock()
}

type strategiesResponse struct {
	Codes    []string                `json:"codes"`
	Catalog  []strategy.CatalogEntry `json:"catalog"`
	Aliases  []strategy.Alias        `json:"aliases"`
	Defaults requestDefaults         `json:"defaults"`
}

type requestDefaults struct {
	Timeframe   string             `json:"tf"`
	Combo       string             `json:"comboName"`
	PeriodKey   string             `json:"periodKey"`
	LimitTrades int                `json:"limitTrades"`
	CostProfile domain.CostProfile `json:"costProfile"`
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, strategiesResponse{
		Codes:   s.registry.Codes(),
		Catalog: s.registry.Catalog(),
		Aliases: s.registry.Aliases(),
		Defaults: requestDefaults{
			Timeframe:   orchestrator.DefaultTimeframe,
			Combo:       orchestrator.DefaultCombo,
			PeriodKey:   orchestrator.DefaultPeriodKey,
			LimitTrades: orchestrator.DefaultLimitTrades,
			CostProfile: domain.CostProfileBase,
		},
	})
}

type runResponse struct {
	RunID       string                 `json:"runId"`
	CreatedAt   int64                  `json:"createdAt"`
	ChainMode   string                 `json:"chainMode"`
	Symbols     int                    `json:"symbols"`
	TotalTrades int                    `json:"totalTrades"`
	Result      *domain.ScenarioResult `json:"result,omitempty"`
}

func newRunResponse(run *domain.ScenarioRun, withResult bool) runResponse {
	resp := runResponse{
		RunID:       run.RunID,
		CreatedAt:   run.CreatedAt,
		ChainMode:   run.ChainMode,
		Symbols:     run.Symbols,
		TotalTrades: run.TotalTrades,
	}
	if withResult {
		resp.Result = run.Result
	}
	return resp
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.RunStore == nil {
		writeJSON(w, http.StatusOK, []runResponse{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}

	runs, err := s.opts.RunStore.List(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list runs")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = newRunResponse(run, false)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newRunResponse(run, true))
}

// handleRunReport renders a stored run as Markdown (default) or as a CSV
// trade ledger with ?format=csv.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	switch r.URL.Query().Get("format") {
	case "csv":
		trades, err := s.opts.RunStore.GetTrades(ctx, run.RunID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = io.WriteString(w, reporting.RenderTradesCSV(trades))
	default:
		report, err := reporting.NewGenerator(s.opts.RunStore).WithClock(s.now).Generate(ctx, run.RunID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, reporting.RenderMarkdown(report))
	}
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*domain.ScenarioRun, bool) {
	if s.opts.RunStore == nil {
		writeError(w, http.StatusNotFound, "run storage disabled")
		return nil, false
	}
	run, err := s.opts.RunStore.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("load run")
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return run, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	StartedAt     time.Time   `json:"startedAt"`
	UptimeSeconds int64       `json:"uptimeSeconds"`
	RunsInFlight  int64       `json:"runsInFlight"`
	LastRun       *runSummary `json:"lastRun,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.lastRun
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, statusResponse{
		StartedAt:     s.started,
		UptimeSeconds: int64(s.now().Sub(s.started).Seconds()),
		RunsInFlight:  s.inFlight.Load(),
		LastRun:       last,
	})
}
