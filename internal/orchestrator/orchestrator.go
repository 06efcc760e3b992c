// Package orchestrator runs multi-step backtest scenarios.
// Per step and symbol it coordinates: load → resolve signals → chain →
// fold plan → (tune) → simulate → metrics, then groups the results.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/limeking/psa-next-hts-coin/internal/backtest"
	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/metrics"
	"github.com/limeking/psa-next-hts-coin/internal/observability"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
	"github.com/limeking/psa-next-hts-coin/internal/strategy"
	"github.com/limeking/psa-next-hts-coin/internal/walkforward"
)

// MinBars is the shortest series or fold window that is simulated.
const MinBars = 50

// Errors recorded per (step, symbol) unit.
var (
	ErrShortSeries = errors.New("series too short")
	ErrLoadSeries  = errors.New("load series")
)

// Progress is emitted after every (step, symbol) unit.
type Progress struct {
	Step   int    `json:"step"`
	Symbol string `json:"symbol"`
	Done   int    `json:"done"`
	Total  int    `json:"total"`
}

// Orchestrator coordinates scenario execution.
type Orchestrator struct {
	candleStore storage.CandleStore
	comboStore  storage.ComboStore
	themeStore  storage.ThemeStore
	registry    *strategy.Registry

	logger   zerolog.Logger
	verbose  bool
	progress func(Progress)
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	CandleStore storage.CandleStore

	// Optional stores. Without a combo store only legacy combo names
	// resolve; without a theme store every symbol is unclassified.
	ComboStore storage.ComboStore
	ThemeStore storage.ThemeStore

	// Registry defaults to strategy.Default.
	Registry *strategy.Registry

	// Options
	Logger   *zerolog.Logger // nil disables logging
	Verbose  bool
	Progress func(Progress)
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "orchestrator").Logger()
	}
	reg := opts.Registry
	if reg == nil {
		reg = strategy.Default
	}
	return &Orchestrator{
		candleStore: opts.CandleStore,
		comboStore:  opts.ComboStore,
		themeStore:  opts.ThemeStore,
		registry:    reg,
		logger:      logger,
		verbose:     opts.Verbose,
		progress:    opts.Progress,
	}
}

// Run executes every step of the scenario over every symbol.
// Phases:
//  1. Steps in declared order, symbols in order (chain masks carried per symbol)
//  2. Theme grouping when requested
//
// Per-symbol failures are recorded in Errors and never abort the run.
// Only context cancellation returns an error.
func (o *Orchestrator) Run(ctx context.Context, sc *domain.Scenario) (*domain.ScenarioResult, error) {
	started := time.Now()

	profiles := sc.CostProfiles
	if len(profiles) == 0 {
		profiles = []domain.CostProfile{domain.CostProfileBase}
	}
	chainMode := sc.ChainMode
	if chainMode == "" {
		chainMode = domain.ChainParallel
	}

	result := &domain.ScenarioResult{
		OK:          true,
		UsedSymbols: append([]string{}, sc.Symbols...),
		Steps:       make([]domain.StepResult, 0, len(sc.Steps)),
		Summary: domain.Summary{
			Symbols:   len(sc.Symbols),
			ChainMode: chainMode,
		},
		ProfilesMeta: make([]string, len(profiles)),
	}
	for i, p := range profiles {
		result.ProfilesMeta[i] = p.Name
	}

	chain := newChainState(chainMode, len(sc.Steps))
	total := len(sc.Steps) * len(sc.Symbols)
	done := 0

	// Phase 1: Steps
	o.log("Phase 1: Running %d steps over %d symbols (chain=%s)...", len(sc.Steps), len(sc.Symbols), chainMode)
	for si, step := range sc.Steps {
		sr := domain.StepResult{
			Timeframe:    step.Timeframe,
			Combo:        step.ComboName,
			StrategyCode: step.StrategyCode,
			PeriodKey:    step.PeriodKey,
			Exit:         step.ExitRequest,
			Runs:         []domain.SymbolRun{},
		}

		for _, sym := range sc.Symbols {
			if err := ctx.Err(); err != nil {
				observability.RecordScenarioRun("canceled", time.Since(started))
				return nil, fmt.Errorf("step %d (%s): %w", si, sym, err)
			}

			run, err := o.runSymbol(ctx, si, step, sym, sc, profiles, chain)
			done++
			o.emit(Progress{Step: si, Symbol: sym, Done: done, Total: total})
			if err != nil {
				reason := "load"
				if errors.Is(err, ErrShortSeries) {
					reason = "short"
				}
				observability.RecordSymbolSkipped(reason)
				result.Errors = append(result.Errors, fmt.Sprintf("step %d %s/%s: %v", si, sym, step.Timeframe, err))
				o.logger.Debug().Int("step", si).Str("symbol", sym).Err(err).Msg("symbol skipped")
				continue
			}
			observability.RecordSymbolProcessed()

			sr.Runs = append(sr.Runs, *run)
			result.Summary.TotalTrades += run.BaseProfile().TotalTrades
		}

		result.Steps = append(result.Steps, sr)
		o.log("  Step %d (%s %s): %d symbols", si, step.Timeframe, stepLabel(step), len(sr.Runs))
	}

	// Phase 2: Grouping
	if sc.GroupBy == domain.GroupByTheme {
		o.log("Phase 2: Grouping by theme...")
		groups, err := o.groupByTheme(ctx, result)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("theme grouping: %v", err))
		}
		result.Groups = map[string]map[string]domain.GroupStats{domain.GroupByTheme: groups}
		o.log("  Built %d theme groups", len(groups))
	}

	o.log("Scenario completed: %d symbols, %d trades, %d errors",
		result.Summary.Symbols, result.Summary.TotalTrades, len(result.Errors))
	observability.RecordScenarioRun("ok", time.Since(started))

	return result, nil
}

// runSymbol loads, resolves and simulates one symbol of one step.
func (o *Orchestrator) runSymbol(
	ctx context.Context,
	si int,
	step domain.ScenarioStep,
	sym string,
	sc *domain.Scenario,
	profiles []domain.CostProfile,
	chain *chainState,
) (*domain.SymbolRun, error) {
	series, err := o.candleStore.GetByTimeRange(ctx, sym, step.Timeframe, step.StartTs, step.EndTs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadSeries, err)
	}
	if len(series) < MinBars {
		return nil, fmt.Errorf("%w: %d bars", ErrShortSeries, len(series))
	}

	rs := o.resolveSignals(ctx, series, step)
	sig, chainGate := chain.apply(si, sym, series.Times(), rs.signals, step.Exit)
	gate := composeGates(rs.gate, chainGate)

	first, last := series.FirstTime(), series.LastTime()
	var folds []domain.Fold
	if sc.Folds == 0 {
		folds = walkforward.FullRange(first, last)
	} else {
		folds = walkforward.Split(first, last, sc.Folds, sc.Scheme, walkforward.SplitOptions{
			TrainRatio: sc.TrainRatio,
			MinTrain:   sc.MinTrainSeconds,
		})
	}

	run := &domain.SymbolRun{
		Symbol:    sym,
		Timeframe: step.Timeframe,
		Profiles:  make([]domain.ProfileRun, 0, len(profiles)),
	}
	for _, prof := range profiles {
		policy := step.Exit.WithCosts(prof)
		pr := domain.ProfileRun{Name: prof.Name, Runs: make([]domain.FoldRun, 0, len(folds))}
		for _, f := range folds {
			fr, trades := o.runFold(series, sig, f, policy, step, rs.tuneCode, gate, sc)
			pr.Runs = append(pr.Runs, fr)
			pr.TotalTrades += trades
		}
		run.Profiles = append(run.Profiles, pr)
	}
	return run, nil
}

// runFold simulates one test window and returns the fold entry with the
// number of trades counted in its stats.
func (o *Orchestrator) runFold(
	series domain.Series,
	sig domain.Signals,
	f domain.Fold,
	policy domain.ExitPolicy,
	step domain.ScenarioStep,
	tuneCode string,
	gate func(domain.Signal) domain.Signal,
	sc *domain.Scenario,
) (domain.FoldRun, int) {
	fr := domain.FoldRun{
		Fold:   [2]int64{f.TestStart, f.TestEnd},
		Trades: []domain.Trade{},
	}
	if f.HasTrain() {
		fr.Train = &[2]int64{*f.TrainStart, *f.TrainEnd}
	}

	lo, hi := series.Between(f.TestStart, f.TestEnd)
	if hi-lo < MinBars {
		observability.RecordFold("short", 0)
		return fr, 0
	}

	use := sig
	if tuneCode != "" && len(step.ParamGrid) > 0 {
		tuned := walkforward.Tune(o.registry, walkforward.TuneRequest{
			Series:   series,
			Code:     tuneCode,
			Params:   step.Params,
			Grid:     step.ParamGrid,
			Policy:   policy,
			Fold:     f,
			ScoreKey: step.ScoreKey,
			Gate:     gate,
		})
		if tuned != nil {
			use = tuned.Signals
			if use.Opposite == nil {
				use.Opposite = sig.Opposite
			}
			fr.Tuning = tuned.Record()
			observability.RecordTuning(tuned.Candidates)
		}
	}

	res, window := backtest.RunWindow(series, use, f.TestStart, f.TestEnd, policy)
	trades := metrics.TagEOT(res.Trades, window.LastTime())
	statsTrades := trades
	if !sc.IncludeEoTInStats {
		statsTrades = metrics.WithoutEOT(trades)
	}
	m := metrics.Compute(statsTrades, window.FirstTime(), window.LastTime())

	fr.Stats = &domain.FoldStats{
		Metrics:         m,
		SimWinRatePct:   res.Stats.WinRate,
		SimProfitFactor: res.Stats.ProfitFactor,
	}
	fr.Trades = lastTrades(trades, sc.LimitTrades)
	observability.RecordFold("simulated", len(trades))
	return fr, m.Trades
}

// groupByTheme buckets every step's symbol runs by theme using the base
// profile's fold averages. A theme lookup failure leaves every symbol
// unclassified and is returned alongside the groups.
func (o *Orchestrator) groupByTheme(ctx context.Context, result *domain.ScenarioResult) (map[string]domain.GroupStats, error) {
	var (
		themes map[string][]string
		err    error
	)
	if o.themeStore != nil {
		themes, err = o.themeStore.Themes(ctx, result.UsedSymbols)
		if err != nil {
			themes = nil
		}
	}

	agg := metrics.NewGroupAggregator()
	for _, st := range result.Steps {
		for _, run := range st.Runs {
			groups := themes[run.Symbol]
			if len(groups) == 0 {
				groups = []string{domain.ThemeUnclassified}
			}
			base := run.BaseProfile()
			agg.Add(groups, run.Symbol, metrics.FoldAverage(base.Runs))
		}
	}
	return agg.Result(), err
}

// lastTrades keeps the last limit trades. A non-positive limit keeps all.
func lastTrades(trades []domain.Trade, limit int) []domain.Trade {
	if limit <= 0 || len(trades) <= limit {
		return trades
	}
	return append([]domain.Trade(nil), trades[len(trades)-limit:]...)
}

func stepLabel(step domain.ScenarioStep) string {
	if step.StrategyCode != "" {
		return step.StrategyCode
	}
	return step.ComboName
}

func (o *Orchestrator) emit(p Progress) {
	if o.progress != nil {
		o.progress(p)
	}
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		o.logger.Info().Msgf(format, args...)
	}
}
