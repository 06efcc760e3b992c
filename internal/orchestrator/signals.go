package orchestrator

import (
	"context"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/strategy"
)

// resolved is the signal set of one step on one series.
type resolved struct {
	signals domain.Signals

	// tuneCode is the registry code grid candidates resolve through;
	// empty when the step is driven by a saved combo only.
	tuneCode string

	// gate narrows tuned entries the way the fixed entry was narrowed.
	gate func(domain.Signal) domain.Signal
}

// resolveSignals picks the signal source of a step: a strategy code, a
// combo name, or both ANDed when RequireBoth is set. The strategy
// supplies the opposite signal when it has one. Missing or malformed
// combos resolve to an all-false entry.
func (o *Orchestrator) resolveSignals(ctx context.Context, series domain.Series, step domain.ScenarioStep) resolved {
	code := step.StrategyCode
	combo := step.ComboName

	switch {
	case code != "" && combo != "" && step.RequireBoth:
		sig := o.registry.Resolve(series, code, step.Params)
		comboSig := o.comboSignals(ctx, series, combo, nil)
		comboEntry := comboSig.Entry
		sig.Entry = sig.Entry.And(comboEntry)
		if sig.Opposite == nil {
			sig.Opposite = comboSig.Opposite
		}
		return resolved{
			signals:  sig,
			tuneCode: code,
			gate:     func(entry domain.Signal) domain.Signal { return entry.And(comboEntry) },
		}

	case code != "":
		return resolved{
			signals:  o.registry.Resolve(series, code, step.Params),
			tuneCode: code,
		}

	default:
		r := resolved{signals: o.comboSignals(ctx, series, combo, step.Params)}
		if o.registry.Known(combo) {
			r.tuneCode = combo
		}
		return r
	}
}

// comboSignals resolves a legacy combo name through the registry, or a
// saved combo through the combo store. Saved combos carry no opposite.
func (o *Orchestrator) comboSignals(ctx context.Context, series domain.Series, name string, params domain.Params) domain.Signals {
	if o.registry.Known(name) {
		return o.registry.Resolve(series, name, params)
	}
	if o.comboStore == nil {
		return domain.Signals{Entry: domain.NewSignal(len(series))}
	}

	combo, err := o.comboStore.GetByName(ctx, name)
	if err != nil {
		o.logger.Debug().Str("combo", name).Err(err).Msg("combo not resolved")
		return domain.Signals{Entry: domain.NewSignal(len(series))}
	}
	return domain.Signals{Entry: strategy.EvaluateCombo(series, combo)}
}

// composeGates applies gates in order, skipping nil ones. It returns nil
// when every gate is nil.
func composeGates(gates ...func(domain.Signal) domain.Signal) func(domain.Signal) domain.Signal {
	var active []func(domain.Signal) domain.Signal
	for _, g := range gates {
		if g != nil {
			active = append(active, g)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(entry domain.Signal) domain.Signal {
		for _, g := range active {
			entry = g(entry)
		}
		return entry
	}
}
