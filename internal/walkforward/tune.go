package walkforward

import (
	"math"
	"sort"

	"github.com/limeking/psa-next-hts-coin/internal/backtest"
	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/metrics"
	"github.com/limeking/psa-next-hts-coin/internal/strategy"
)

// TuneRequest describes one fold's tuning job.
type TuneRequest struct {
	Series   domain.Series // full loaded series; signals warm up on it
	Code     string
	Params   domain.Params // fixed step params; candidates override them
	Grid     domain.ParamGrid
	Policy   domain.ExitPolicy
	Fold     domain.Fold
	ScoreKey string

	// Gate, when set, is applied to each candidate's entry signal so the
	// chain mode narrows tuned entries the same way as fixed ones.
	Gate func(domain.Signal) domain.Signal
}

// TuneResult is the winning candidate of a tuning job.
type TuneResult struct {
	Params     domain.Params // fixed params with the candidate applied
	Candidate  domain.Params
	Score      float64
	Candidates int
	TrainStats domain.Metrics
	Signals    domain.Signals // full-series signals of the winner, gate applied
}

// Record renders the result for the scenario tree. An infinite score
// (no candidate traded) is reported as 0.
func (r *TuneResult) Record() *domain.TuningRecord {
	score := r.Score
	if math.IsInf(score, 0) || math.IsNaN(score) {
		score = 0
	}
	return &domain.TuningRecord{
		Params:     r.Candidate,
		Score:      score,
		Candidates: r.Candidates,
		TrainStats: r.TrainStats,
	}
}

// Tune simulates every grid candidate on the fold's train range only and
// returns the highest scoring one; ties keep the first. Returns nil when
// the grid is empty or the fold has no train range.
func Tune(reg *strategy.Registry, req TuneRequest) *TuneResult {
	if !req.Fold.HasTrain() {
		return nil
	}
	candidates := ExpandGrid(req.Grid)
	if len(candidates) == 0 {
		return nil
	}

	var best *TuneResult
	for _, cand := range candidates {
		params := req.Params.Merge(cand)
		sig := reg.Resolve(req.Series, req.Code, params)
		if req.Gate != nil {
			sig.Entry = req.Gate(sig.Entry)
		}

		res, window := backtest.RunWindow(req.Series, sig, *req.Fold.TrainStart, *req.Fold.TrainEnd, req.Policy)
		m := metrics.Compute(res.Trades, window.FirstTime(), window.LastTime())
		score := Score(req.ScoreKey, res.Stats, m)

		if best == nil || score > best.Score {
			best = &TuneResult{
				Params:     params,
				Candidate:  cand,
				Score:      score,
				TrainStats: m,
				Signals:    sig,
			}
		}
	}
	best.Candidates = len(candidates)
	return best
}

// Score rates one train simulation. pf uses the simulator profit factor
// and falls back to winRate*100 + expectancy when it is undefined. A run
// without trades scores -Inf under every key.
func Score(key string, sim domain.SimStats, m domain.Metrics) float64 {
	if m.Trades == 0 {
		return math.Inf(-1)
	}
	switch key {
	case domain.ScoreKeyWinRate:
		return m.WinRate
	case domain.ScoreKeyExpectancy:
		return m.Expectancy
	case domain.ScoreKeyCAGR:
		return m.CAGR
	default:
		if sim.ProfitFactor != nil {
			return *sim.ProfitFactor
		}
		return m.WinRate*100 + m.Expectancy
	}
}

// ExpandGrid returns the cartesian product of grid values. Keys are
// iterated in sorted order with the last key varying fastest. Keys with
// no values are ignored.
func ExpandGrid(grid domain.ParamGrid) []domain.Params {
	keys := make([]string, 0, len(grid))
	for k, vals := range grid {
		if len(vals) > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	out := []domain.Params{{}}
	for _, k := range keys {
		next := make([]domain.Params, 0, len(out)*len(grid[k]))
		for _, base := range out {
			for _, v := range grid[k] {
				p := base.Merge(domain.Params{k: v})
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}
