package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage/memory"
)

const (
	day = int64(86400)
	t0  = int64(1704067200)
)

// plateauSeries builds n daily bars whose close (and open) is base,
// switching to levels[k] from bar at[k] on.
func plateauSeries(n int, base float64, at []int, levels []float64) []domain.Candle {
	out := make([]domain.Candle, n)
	price := base
	k := 0
	for i := 0; i < n; i++ {
		if k < len(at) && i == at[k] {
			price = levels[k]
			k++
		}
		out[i] = domain.Candle{
			Time:   t0 + int64(i)*day,
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		}
	}
	return out
}

// crossSeries has MA 5/20 golden crosses at bars 60 and 90 and one dead
// cross at bar 120. A long opened after the first cross wins.
func crossSeries() []domain.Candle {
	return plateauSeries(200, 100, []int{60, 90, 120}, []float64{120, 140, 130})
}

func maCrossStep() domain.ScenarioStep {
	return domain.ScenarioStep{
		Timeframe:    "1d",
		StrategyCode: domain.StrategyMACross,
		Params:       domain.Params{"fast": 5, "slow": 20, "direction": "up"},
		PeriodKey:    "all",
		Exit:         domain.ExitPolicy{UseOppositeSignal: true},
		ExitRequest:  domain.ExitRequest{UseOppositeSignal: true},
		ScoreKey:     domain.ScoreKeyPF,
	}
}

func newTestStore(t *testing.T, series map[string][]domain.Candle) *memory.CandleStore {
	t.Helper()
	store := memory.NewCandleStore()
	for sym, candles := range series {
		if err := store.InsertBulk(context.Background(), sym, "1d", candles); err != nil {
			t.Fatalf("insert %s: %v", sym, err)
		}
	}
	return store
}

func TestOrchestrator_Run_EndToEndMACross(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, map[string][]domain.Candle{"BTC_KRW": crossSeries()})

	orch := New(Options{CandleStore: store})
	res, err := orch.Run(ctx, &domain.Scenario{
		Steps:             []domain.ScenarioStep{maCrossStep()},
		Symbols:           []string{"BTC_KRW"},
		CostProfiles:      []domain.CostProfile{domain.CostProfileBase},
		ChainMode:         domain.ChainParallel,
		IncludeEoTInStats: true,
		LimitTrades:       200,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !res.OK {
		t.Errorf("expected ok result")
	}
	if len(res.Steps) != 1 || len(res.Steps[0].Runs) != 1 {
		t.Fatalf("expected one step with one symbol run, got %+v", res.Steps)
	}
	prof := res.Steps[0].Runs[0].Profiles[0]
	if len(prof.Runs) != 1 {
		t.Fatalf("expected one full-range fold, got %d", len(prof.Runs))
	}
	fold := prof.Runs[0]
	if fold.Fold != [2]int64{t0, t0 + 199*day} {
		t.Errorf("fold = %v, want full range", fold.Fold)
	}
	if fold.Train != nil {
		t.Errorf("full-range fold must not carry a train range")
	}

	if len(fold.Trades) != 1 {
		t.Fatalf("expected exactly 1 trade, got %d: %+v", len(fold.Trades), fold.Trades)
	}
	tr := fold.Trades[0]
	if tr.EntryTime != t0+61*day {
		t.Errorf("entry time = %d, want bar after golden cross %d", tr.EntryTime, t0+61*day)
	}
	if tr.ExitTime != t0+121*day {
		t.Errorf("exit time = %d, want bar after dead cross %d", tr.ExitTime, t0+121*day)
	}
	if tr.Reason != domain.ExitReasonOppositeSignal {
		t.Errorf("reason = %q, want %q", tr.Reason, domain.ExitReasonOppositeSignal)
	}

	if fold.Stats == nil || fold.Stats.Trades != 1 {
		t.Errorf("expected stats over 1 trade, got %+v", fold.Stats)
	}
	if res.Summary.TotalTrades != 1 || res.Summary.Symbols != 1 {
		t.Errorf("summary = %+v", res.Summary)
	}
	if res.Summary.ChainMode != domain.ChainParallel {
		t.Errorf("chain mode = %q", res.Summary.ChainMode)
	}
	if len(res.ProfilesMeta) != 1 || res.ProfilesMeta[0] != "base" {
		t.Errorf("profilesMeta = %v", res.ProfilesMeta)
	}
}

func TestOrchestrator_Run_SkipsShortAndMissingSeries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, map[string][]domain.Candle{
		"BTC_KRW": crossSeries(),
		"XRP_KRW": plateauSeries(30, 10, nil, nil),
	})

	orch := New(Options{CandleStore: store})
	res, err := orch.Run(ctx, &domain.Scenario{
		Steps:   []domain.ScenarioStep{maCrossStep()},
		Symbols: []string{"BTC_KRW", "XRP_KRW", "NOPE_KRW"},
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(res.UsedSymbols) != 3 || res.Summary.Symbols != 3 {
		t.Errorf("used symbols = %v, summary = %+v", res.UsedSymbols, res.Summary)
	}
	runs := res.Steps[0].Runs
	if len(runs) != 1 || runs[0].Symbol != "BTC_KRW" {
		t.Fatalf("expected only BTC_KRW to run, got %+v", runs)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 recorded errors, got %v", res.Errors)
	}
	for _, e := range res.Errors {
		if !strings.Contains(e, ErrShortSeries.Error()) {
			t.Errorf("expected short series error, got %q", e)
		}
	}
}

func TestOrchestrator_Run_ShortFoldIsEmptyEntry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, map[string][]domain.Candle{"BTC_KRW": crossSeries()})

	orch := New(Options{CandleStore: store})
	res, err := orch.Run(ctx, &domain.Scenario{
		Steps:   []domain.ScenarioStep{maCrossStep()},
		Symbols: []string{"BTC_KRW"},
		Folds:   5, // 40-bar test windows
		Scheme:  domain.SchemeAnchored,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	folds := res.Steps[0].Runs[0].Profiles[0].Runs
	if len(folds) != 5 {
		t.Fatalf("expected 5 folds, got %d", len(folds))
	}
	for i, f := range folds {
		if f.Stats != nil {
			t.Errorf("fold %d: expected nil stats for a short window", i)
		}
		if f.Trades == nil || len(f.Trades) != 0 {
			t.Errorf("fold %d: expected empty trade list, got %v", i, f.Trades)
		}
	}
	if res.Summary.TotalTrades != 0 {
		t.Errorf("total trades = %d, want 0", res.Summary.TotalTrades)
	}
}

func TestOrchestrator_Run_TotalTradesFromBaseProfile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, map[string][]domain.Candle{
		"BTC_KRW": crossSeries(),
		"ETH_KRW": crossSeries(),
	})

	orch := New(Options{CandleStore: store})
	res, err := orch.Run(ctx, &domain.Scenario{
		Steps:   []domain.ScenarioStep{maCrossStep()},
		Symbols: []string{"BTC_KRW", "ETH_KRW"},
		CostProfiles: []domain.CostProfile{
			domain.CostProfileOptimistic,
			domain.CostProfileBase,
			domain.CostProfilePessimistic,
		},
		IncludeEoTInStats: true,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if res.Summary.TotalTrades != 2 {
		t.Errorf("total trades = %d, want 2 (one per symbol from base)", res.Summary.TotalTrades)
	}
	want := []string{"optimistic", "base", "pessimistic"}
	for i, name := range want {
		if res.ProfilesMeta[i] != name {
			t.Errorf("profilesMeta[%d] = %q, want %q", i, res.ProfilesMeta[i], name)
		}
	}

	// Costs change prices, never the trade timing
	profs := res.Steps[0].Runs[0].Profiles
	opt, pess := profs[0].Runs[0].Trades[0], profs[2].Runs[0].Trades[0]
	if opt.EntryTime != pess.EntryTime || opt.ExitTime != pess.ExitTime {
		t.Errorf("profiles disagree on timing: %+v vs %+v", opt, pess)
	}
	if opt.PnlPct <= pess.PnlPct {
		t.Errorf("optimistic pnl %.4f should beat pessimistic %.4f", opt.PnlPct, pess.PnlPct)
	}
}

func TestOrchestrator_Run_StateModeRegimeStepNeverTrades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, map[string][]domain.Candle{"BTC_KRW": crossSeries()})

	regime := maCrossStep()
	final := maCrossStep()

	orch := New(Options{CandleStore: store})
	res, err := orch.Run(ctx, &domain.Scenario{
		Steps:             []domain.ScenarioStep{regime, final},
		Symbols:           []string{"BTC_KRW"},
		ChainMode:         domain.ChainState,
		IncludeEoTInStats: true,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if n := len(res.Steps[0].Runs[0].Profiles[0].Runs[0].Trades); n != 0 {
		t.Errorf("regime step traded %d times", n)
	}
	// The regime opens on the golden cross bar, so the final step's
	// identical entries pass the gate.
	if n := len(res.Steps[1].Runs[0].Profiles[0].Runs[0].Trades); n != 1 {
		t.Errorf("final step trades = %d, want 1", n)
	}
	if res.Summary.ChainMode != domain.ChainState {
		t.Errorf("chain mode = %q", res.Summary.ChainMode)
	}
}

func TestOrchestrator_Run_ThemeGroups(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, map[string][]domain.Candle{
		"BTC_KRW": crossSeries(),
		"ETH_KRW": crossSeries(),
	})
	themes := memory.NewThemeStore()
	if err := themes.SetThemes(ctx, "BTC_KRW", []string{"Layer1", "Payments"}); err != nil {
		t.Fatalf("set themes: %v", err)
	}

	orch := New(Options{CandleStore: store, ThemeStore: themes})
	res, err := orch.Run(ctx, &domain.Scenario{
		Steps:             []domain.ScenarioStep{maCrossStep()},
		Symbols:           []string{"BTC_KRW", "ETH_KRW"},
		GroupBy:           domain.GroupByTheme,
		IncludeEoTInStats: true,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	groups, ok := res.Groups[domain.GroupByTheme]
	if !ok {
		t.Fatalf("expected theme groups, got %v", res.Groups)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %v", groups)
	}
	for _, name := range []string{"Layer1", "Payments"} {
		g := groups[name]
		if g.Count != 1 || g.Symbols[0] != "BTC_KRW" {
			t.Errorf("group %s = %+v", name, g)
		}
	}
	un := groups[domain.ThemeUnclassified]
	if un.Count != 1 || un.Symbols[0] != "ETH_KRW" {
		t.Errorf("unclassified = %+v", un)
	}
	if un.Avg.WinRate != 1 {
		t.Errorf("unclassified winRate = %v, want 1", un.Avg.WinRate)
	}
}

func TestOrchestrator_Run_ComboStoreAndRequireBoth(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, map[string][]domain.Candle{"BTC_KRW": crossSeries()})
	combos := memory.NewComboStore()
	// close above 110 holds from bar 60 through 119
	if err := combos.Save(ctx, &domain.Combo{
		Name: "above110",
		Root: domain.ComboNode{Key: "close", Operator: ">", Value: 110},
	}); err != nil {
		t.Fatalf("save combo: %v", err)
	}

	tests := []struct {
		name       string
		combo      string
		wantTrades int
	}{
		{"combo agrees with cross", "above110", 1},
		{"unknown combo fails closed", "missing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := maCrossStep()
			step.ComboName = tt.combo
			step.RequireBoth = true

			orch := New(Options{CandleStore: store, ComboStore: combos})
			res, err := orch.Run(ctx, &domain.Scenario{
				Steps:   []domain.ScenarioStep{step},
				Symbols: []string{"BTC_KRW"},
			})
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			got := res.Steps[0].Runs[0].Profiles[0].Runs[0].Trades
			if len(got) != tt.wantTrades {
				t.Errorf("trades = %d, want %d", len(got), tt.wantTrades)
			}
		})
	}
}

func TestOrchestrator_Run_ProgressAndCancel(t *testing.T) {
	store := newTestStore(t, map[string][]domain.Candle{"BTC_KRW": crossSeries()})
	sc := &domain.Scenario{
		Steps:   []domain.ScenarioStep{maCrossStep(), maCrossStep()},
		Symbols: []string{"BTC_KRW", "ETH_KRW"},
	}

	var events []Progress
	orch := New(Options{
		CandleStore: store,
		Progress:    func(p Progress) { events = append(events, p) },
	})
	if _, err := orch.Run(context.Background(), sc); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 progress events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Done != 4 || last.Total != 4 || last.Step != 1 || last.Symbol != "ETH_KRW" {
		t.Errorf("last event = %+v", last)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := orch.Run(ctx, sc); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLastTrades(t *testing.T) {
	trades := make([]domain.Trade, 5)
	for i := range trades {
		trades[i].EntryTime = int64(i)
	}

	got := lastTrades(trades, 2)
	if len(got) != 2 || got[0].EntryTime != 3 || got[1].EntryTime != 4 {
		t.Errorf("lastTrades(5, 2) = %+v", got)
	}
	if len(lastTrades(trades, 0)) != 5 {
		t.Errorf("limit 0 must keep all trades")
	}
	if len(lastTrades(trades, 10)) != 5 {
		t.Errorf("limit above length must keep all trades")
	}
}

func TestFlatten(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, map[string][]domain.Candle{"BTC_KRW": crossSeries()})

	res, err := New(Options{CandleStore: store}).Run(ctx, &domain.Scenario{
		Steps:        []domain.ScenarioStep{maCrossStep()},
		Symbols:      []string{"BTC_KRW"},
		CostProfiles: []domain.CostProfile{domain.CostProfileBase, domain.CostProfilePessimistic},
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	flat := Flatten("run-1", res)
	if len(flat) != 2 {
		t.Fatalf("expected 2 flattened trades, got %d", len(flat))
	}
	if flat[0].TradeID == flat[1].TradeID {
		t.Errorf("trade ids must differ across profiles")
	}
	if flat[0].Profile != "base" || flat[1].Profile != "pessimistic" {
		t.Errorf("profiles = %s, %s", flat[0].Profile, flat[1].Profile)
	}
	if flat[0].RunID != "run-1" || flat[0].Symbol != "BTC_KRW" || flat[0].FoldStart != t0 {
		t.Errorf("unexpected flattened trade %+v", flat[0])
	}

	run := NewScenarioRun("run-1", 1700000000000, []byte(`{}`), res)
	if run.TotalTrades != 1 || run.Symbols != 1 || run.ChainMode != domain.ChainParallel {
		t.Errorf("scenario run = %+v", run)
	}
}
