package orchestrator

import (
	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/idhash"
)

// Flatten lists every reported trade of a result with its position in
// the result tree and a deterministic trade id.
func Flatten(runID string, res *domain.ScenarioResult) []domain.RunTrade {
	var out []domain.RunTrade
	for si, st := range res.Steps {
		for _, run := range st.Runs {
			for _, prof := range run.Profiles {
				for _, fold := range prof.Runs {
					for _, t := range fold.Trades {
						out = append(out, domain.RunTrade{
							TradeID:   idhash.ComputeTradeID(runID, si, run.Symbol, prof.Name, fold.Fold[0], t.EntryTime),
							RunID:     runID,
							Step:      si,
							Symbol:    run.Symbol,
							Timeframe: run.Timeframe,
							Profile:   prof.Name,
							FoldStart: fold.Fold[0],
							FoldEnd:   fold.Fold[1],
							Trade:     t,
						})
					}
				}
			}
		}
	}
	return out
}

// NewScenarioRun wraps a finished result for persistence.
func NewScenarioRun(runID string, createdAtMs int64, request []byte, res *domain.ScenarioResult) *domain.ScenarioRun {
	return &domain.ScenarioRun{
		RunID:       runID,
		CreatedAt:   createdAtMs,
		ChainMode:   res.Summary.ChainMode,
		Symbols:     res.Summary.Symbols,
		TotalTrades: res.Summary.TotalTrades,
		Request:     request,
		Result:      res,
	}
}
