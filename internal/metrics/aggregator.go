package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// ErrNoTrades is returned when no trades are available for aggregation.
var ErrNoTrades = errors.New("no trades available for aggregation")

// GroupAggregator keeps running means of pf, winRate and mdd per group.
// Each Add is O(1) per group. Not safe for concurrent use.
type GroupAggregator struct {
	groups map[string]*domain.GroupStats
}

// NewGroupAggregator creates an empty aggregator.
func NewGroupAggregator() *GroupAggregator {
	return &GroupAggregator{groups: make(map[string]*domain.GroupStats)}
}

// Add folds one symbol's averages into every group in groups.
func (g *GroupAggregator) Add(groups []string, symbol string, avg domain.GroupAvg) {
	for _, name := range groups {
		gs, ok := g.groups[name]
		if !ok {
			gs = &domain.GroupStats{Symbols: []string{}}
			g.groups[name] = gs
		}
		gs.Count++
		gs.Symbols = append(gs.Symbols, symbol)
		n := float64(gs.Count)
		gs.Avg.PF += (avg.PF - gs.Avg.PF) / n
		gs.Avg.WinRate += (avg.WinRate - gs.Avg.WinRate) / n
		gs.Avg.MDD += (avg.MDD - gs.Avg.MDD) / n
	}
}

// Result returns a copy of the group stats.
func (g *GroupAggregator) Result() map[string]domain.GroupStats {
	out := make(map[string]domain.GroupStats, len(g.groups))
	for name, gs := range g.groups {
		cp := *gs
		cp.Symbols = append([]string(nil), gs.Symbols...)
		out[name] = cp
	}
	return out
}

// FoldAverage averages pf, winRate and mdd over the folds that have stats.
func FoldAverage(runs []domain.FoldRun) domain.GroupAvg {
	var avg domain.GroupAvg
	n := 0
	for _, r := range runs {
		if r.Stats == nil {
			continue
		}
		n++
		avg.PF += r.Stats.PF
		avg.WinRate += r.Stats.WinRate
		avg.MDD += r.Stats.MDD
	}
	if n == 0 {
		return avg
	}
	avg.PF /= float64(n)
	avg.WinRate /= float64(n)
	avg.MDD /= float64(n)
	return avg
}

// RunAggregate is the metrics of one (step, profile) slice of a stored run.
type RunAggregate struct {
	Step    int
	Profile string
	Symbols int
	Metrics domain.Metrics
}

// Aggregator recomputes metrics from the trades of stored scenario runs.
type Aggregator struct {
	runStore storage.ScenarioRunStore
}

// NewAggregator creates a new run aggregator.
func NewAggregator(runStore storage.ScenarioRunStore) *Aggregator {
	return &Aggregator{runStore: runStore}
}

// ComputeRun pools the stored trades of a run by (step, profile) and
// computes metrics per pool, ordered by step then profile.
// Returns ErrNoTrades if the run has no trades.
func (a *Aggregator) ComputeRun(ctx context.Context, runID string) ([]RunAggregate, error) {
	trades, err := a.runStore.GetTrades(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades of run %s: %w", runID, err)
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	type key struct {
		step    int
		profile string
	}
	type pool struct {
		trades  []domain.Trade
		symbols map[string]struct{}
		first   int64
		last    int64
	}
	pools := make(map[key]*pool)
	for _, t := range trades {
		k := key{t.Step, t.Profile}
		p, ok := pools[k]
		if !ok {
			p = &pool{symbols: make(map[string]struct{}), first: t.FoldStart, last: t.FoldEnd}
			pools[k] = p
		}
		p.trades = append(p.trades, t.Trade)
		p.symbols[t.Symbol] = struct{}{}
		if t.FoldStart < p.first {
			p.first = t.FoldStart
		}
		if t.FoldEnd > p.last {
			p.last = t.FoldEnd
		}
	}

	keys := make([]key, 0, len(pools))
	for k := range pools {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].step != keys[j].step {
			return keys[i].step < keys[j].step
		}
		return keys[i].profile < keys[j].profile
	})

	out := make([]RunAggregate, len(keys))
	for i, k := range keys {
		p := pools[k]
		out[i] = RunAggregate{
			Step:    k.step,
			Profile: k.profile,
			Symbols: len(p.symbols),
			Metrics: Compute(p.trades, p.first, p.last),
		}
	}
	return out, nil
}
