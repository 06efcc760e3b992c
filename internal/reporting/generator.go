package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/limeking/psa-next-hts-coin/internal/decision"
	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/metrics"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// Generator produces reports from stored scenario runs.
type Generator struct {
	runStore   storage.ScenarioRunStore
	aggregator *metrics.Aggregator
	thresholds decision.Thresholds
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.ScenarioRunStore) *Generator {
	return &Generator{
		runStore:   runStore,
		aggregator: metrics.NewAggregator(runStore),
		thresholds: decision.DefaultThresholds(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithThresholds sets the viability thresholds.
func (g *Generator) WithThresholds(th decision.Thresholds) *Generator {
	g.thresholds = th
	return g
}

// Generate produces the report of a stored run.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	aggs, err := g.aggregator.ComputeRun(ctx, runID)
	if err != nil && !errors.Is(err, metrics.ErrNoTrades) {
		return nil, err
	}

	r := &Report{
		GeneratedAt: g.now(),
		RunID:       run.RunID,
		CreatedAt:   run.CreatedAt,
		ChainMode:   run.ChainMode,
		Symbols:     run.Symbols,
		TotalTrades: run.TotalTrades,
	}
	for _, a := range aggs {
		r.ProfileMetrics = append(r.ProfileMetrics, ProfileMetricRow{
			Step:        a.Step,
			Profile:     a.Profile,
			Symbols:     a.Symbols,
			Trades:      a.Metrics.Trades,
			WinRate:     a.Metrics.WinRate,
			Expectancy:  a.Metrics.Expectancy,
			PF:          a.Metrics.PF,
			MDD:         a.Metrics.MDD,
			CAGR:        a.Metrics.CAGR,
			MedianPnl:   a.Metrics.MedianPnl,
			MaxConsLoss: a.Metrics.MaxConsecutiveLosses,
		})
	}

	r.Viability = decision.EvaluateAll(decision.BuildInputs(aggs), g.thresholds)

	if run.Result != nil {
		fillFromResult(r, run.Result)
	}
	return r, nil
}

// fillFromResult adds the step, symbol and group sections of a result tree.
func fillFromResult(r *Report, res *domain.ScenarioResult) {
	r.Profiles = append([]string(nil), res.ProfilesMeta...)
	r.Errors = append([]string(nil), res.Errors...)

	for si, st := range res.Steps {
		row := StepRow{
			Index:     si,
			Timeframe: st.Timeframe,
			Signal:    st.StrategyCode,
			PeriodKey: st.PeriodKey,
			Symbols:   len(st.Runs),
		}
		if row.Signal == "" {
			row.Signal = st.Combo
		} else if st.Combo != "" {
			row.Signal += " & " + st.Combo
		}

		for _, run := range st.Runs {
			base := run.BaseProfile()
			row.Trades += base.TotalTrades

			avg := metrics.FoldAverage(base.Runs)
			r.SymbolMetrics = append(r.SymbolMetrics, SymbolMetricRow{
				Step:    si,
				Symbol:  run.Symbol,
				Folds:   len(base.Runs),
				Trades:  base.TotalTrades,
				PF:      avg.PF,
				WinRate: avg.WinRate,
				MDD:     avg.MDD,
			})
		}
		r.Steps = append(r.Steps, row)
	}

	for _, groups := range res.Groups {
		for name, g := range groups {
			r.Groups = append(r.Groups, GroupRow{
				Name:    name,
				Count:   g.Count,
				Symbols: g.Symbols,
				PF:      g.Avg.PF,
				WinRate: g.Avg.WinRate,
				MDD:     g.Avg.MDD,
			})
		}
	}
	sort.Slice(r.Groups, func(i, j int) bool { return r.Groups[i].Name < r.Groups[j].Name })
}
