package strategy

import (
	"fmt"
	"math"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/indicators"
)

// maCross: fast SMA crossing slow SMA.
type maCross struct{}

func (maCross) Code() string { return domain.StrategyMACross }
func (maCross) Defaults() domain.Params {
	return domain.Params{"fast": 5, "slow": 20, "direction": domain.DirectionUp}
}
func (maCross) Description() string {
	return "fast SMA crosses the slow SMA; the mirror cross is the opposite signal"
}
func (maCross) HasOpposite() bool { return true }

func (maCross) Signals(series domain.Series, p domain.Params) (domain.Signals, error) {
	fast, err := positiveInt(p, "fast")
	if err != nil {
		return domain.Signals{}, err
	}
	slow, err := positiveInt(p, "slow")
	if err != nil {
		return domain.Signals{}, err
	}
	if fast >= slow {
		return domain.Signals{}, fmt.Errorf("%w: fast %d must be below slow %d", ErrInvalidParams, fast, slow)
	}
	dir := p.StringOr("direction", domain.DirectionUp)
	if dir != domain.DirectionUp && dir != domain.DirectionDown {
		return domain.Signals{}, fmt.Errorf("%w: direction %q", ErrInvalidParams, dir)
	}

	closes := series.Closes()
	f := indicators.SMA(closes, fast)
	s := indicators.SMA(closes, slow)
	up := indicators.CrossAbove(f, s)
	down := indicators.CrossBelow(f, s)
	if dir == domain.DirectionDown {
		up, down = down, up
	}
	return domain.Signals{Entry: toSignal(up), Opposite: toSignal(down)}, nil
}

// rsiBands: Wilder RSI leaving the oversold band, exiting on the overbought band.
type rsiBands struct{}

func (rsiBands) Code() string { return domain.StrategyRSIBands }
func (rsiBands) Defaults() domain.Params {
	return domain.Params{"length": 14, "low": 30, "high": 70}
}
func (rsiBands) Description() string {
	return "RSI crosses above the low band; crossing below the high band is the opposite signal"
}
func (rsiBands) HasOpposite() bool { return true }

func (rsiBands) Signals(series domain.Series, p domain.Params) (domain.Signals, error) {
	length, err := positiveInt(p, "length")
	if err != nil {
		return domain.Signals{}, err
	}
	low, err := number(p, "low")
	if err != nil {
		return domain.Signals{}, err
	}
	high, err := number(p, "high")
	if err != nil {
		return domain.Signals{}, err
	}
	if low >= high {
		return domain.Signals{}, fmt.Errorf("%w: low %v must be below high %v", ErrInvalidParams, low, high)
	}

	rsi := indicators.RSI(series.Closes(), length)
	n := len(series)
	return domain.Signals{
		Entry:    toSignal(indicators.CrossAbove(rsi, indicators.Const(n, low))),
		Opposite: toSignal(indicators.CrossBelow(rsi, indicators.Const(n, high))),
	}, nil
}

// macdCross: MACD line crossing its signal line.
type macdCross struct{}

func (macdCross) Code() string { return domain.StrategyMACDCross }
func (macdCross) Defaults() domain.Params {
	return domain.Params{"fast": 12, "slow": 26, "signal": 9}
}
func (macdCross) Description() string {
	return "MACD crosses above its signal line; crossing below is the opposite signal"
}
func (macdCross) HasOpposite() bool { return true }

func (macdCross) Signals(series domain.Series, p domain.Params) (domain.Signals, error) {
	fast, err := positiveInt(p, "fast")
	if err != nil {
		return domain.Signals{}, err
	}
	slow, err := positiveInt(p, "slow")
	if err != nil {
		return domain.Signals{}, err
	}
	signal, err := positiveInt(p, "signal")
	if err != nil {
		return domain.Signals{}, err
	}
	if fast >= slow {
		return domain.Signals{}, fmt.Errorf("%w: fast %d must be below slow %d", ErrInvalidParams, fast, slow)
	}

	line, sig := indicators.MACD(series.Closes(), fast, slow, signal)
	return domain.Signals{
		Entry:    toSignal(indicators.CrossAbove(line, sig)),
		Opposite: toSignal(indicators.CrossBelow(line, sig)),
	}, nil
}

// maBreakout: close crossing its SMA.
type maBreakout struct{}

func (maBreakout) Code() string            { return domain.StrategyMABreakout }
func (maBreakout) Defaults() domain.Params { return domain.Params{"length": 20} }
func (maBreakout) Description() string {
	return "close crosses above its SMA; crossing below is the opposite signal"
}
func (maBreakout) HasOpposite() bool { return true }

func (maBreakout) Signals(series domain.Series, p domain.Params) (domain.Signals, error) {
	length, err := positiveInt(p, "length")
	if err != nil {
		return domain.Signals{}, err
	}
	closes := series.Closes()
	ma := indicators.SMA(closes, length)
	return domain.Signals{
		Entry:    toSignal(indicators.CrossAbove(closes, ma)),
		Opposite: toSignal(indicators.CrossBelow(closes, ma)),
	}, nil
}

// volumeSpike: volume at a multiple of its trailing average.
type volumeSpike struct{}

func (volumeSpike) Code() string            { return domain.StrategyVolumeSpike }
func (volumeSpike) Defaults() domain.Params { return domain.Params{"n": 20, "mult": 2.0} }
func (volumeSpike) Description() string {
	return "volume reaches mult x the average of the prior n bars"
}
func (volumeSpike) HasOpposite() bool { return true }

func (volumeSpike) Signals(series domain.Series, p domain.Params) (domain.Signals, error) {
	n, err := positiveInt(p, "n")
	if err != nil {
		return domain.Signals{}, err
	}
	mult, err := positive(p, "mult")
	if err != nil {
		return domain.Signals{}, err
	}
	vol := series.Volumes()
	avg := indicators.Shift(indicators.SMA(vol, n))
	entry := domain.NewSignal(len(series))
	opp := domain.NewSignal(len(series))
	for i := range series {
		if math.IsNaN(avg[i]) {
			continue
		}
		entry[i] = vol[i] >= mult*avg[i]
		opp[i] = vol[i] < mult*avg[i]
	}
	return domain.Signals{Entry: entry, Opposite: opp}, nil
}

// none is the fail-closed variant.
type none struct{}

func (none) Code() string            { return domain.StrategyNone }
func (none) Defaults() domain.Params { return domain.Params{} }
func (none) Description() string     { return "never enters" }
func (none) HasOpposite() bool       { return true }

func (none) Signals(series domain.Series, _ domain.Params) (domain.Signals, error) {
	return domain.EmptySignals(len(series)), nil
}
