package strategy

import (
	"math"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/indicators"
)

// Volume filter parameter keys
const (
	ParamMinVolume          = "min_volume"
	ParamVolumeSMAN         = "volume_sma_n"
	ParamVolumeSMAMult      = "volume_sma_mult"
	ParamMinVolumeChangePct = "min_volume_change_pct"
)

// VolumeFilter returns the strategy-agnostic volume gate read from p.
// Each present rule narrows the gate; with no rules every bar passes.
// A malformed rule closes the gate entirely.
//
//   - min_volume: volume >= value
//   - volume_sma_n (+ volume_sma_mult, default 1): volume >= mult x SMA of the prior n bars
//   - min_volume_change_pct: bar-over-bar volume change >= value percent
func VolumeFilter(series domain.Series, p domain.Params) domain.Signal {
	n := len(series)
	out := make(domain.Signal, n)
	for i := range out {
		out[i] = true
	}
	vol := series.Volumes()

	if p.Has(ParamMinVolume) {
		minVol, ok := p.Float(ParamMinVolume)
		if !ok {
			return domain.NewSignal(n)
		}
		for i := range out {
			out[i] = out[i] && vol[i] >= minVol
		}
	}

	if p.Has(ParamVolumeSMAN) {
		smaN, err := positiveInt(p, ParamVolumeSMAN)
		if err != nil {
			return domain.NewSignal(n)
		}
		mult := 1.0
		if p.Has(ParamVolumeSMAMult) {
			if mult, err = positive(p, ParamVolumeSMAMult); err != nil {
				return domain.NewSignal(n)
			}
		}
		avg := indicators.Shift(indicators.SMA(vol, smaN))
		for i := range out {
			out[i] = out[i] && !math.IsNaN(avg[i]) && vol[i] >= mult*avg[i]
		}
	}

	if p.Has(ParamMinVolumeChangePct) {
		minChg, ok := p.Float(ParamMinVolumeChangePct)
		if !ok {
			return domain.NewSignal(n)
		}
		chg := indicators.PctChange(vol)
		for i := range out {
			out[i] = out[i] && !math.IsNaN(chg[i]) && chg[i] >= minChg
		}
	}
	return out
}
