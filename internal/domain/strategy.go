package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Strategy code constants
const (
	StrategyMACross            = "MA_CROSS"
	StrategyRSIBands           = "RSI_BANDS"
	StrategyMACDCross          = "MACD_CROSS"
	StrategyMABreakout         = "MA_BREAKOUT"
	StrategyVolumeSpike        = "VOLUME_SPIKE"
	StrategyPullbackBreakout   = "PULLBACK_BREAKOUT"
	StrategyCupHandle          = "CUP_HANDLE"
	StrategyLowerHighsReversal = "LOWER_HIGHS_REVERSAL"
	StrategyNone               = "NONE" // fail-closed variant
)

// Direction values for cross strategies
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Params is a loosely typed strategy parameter record as it arrives from
// JSON or YAML. Typed accessors convert on read.
type Params map[string]any

// Merge returns a new Params with override applied on top of p.
func (p Params) Merge(override Params) Params {
	out := make(Params, len(p)+len(override))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Has reports whether key is present and non-nil.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// Float returns the numeric value of key. ok is false when the key is
// missing or not numeric.
func (p Params) Float(key string) (float64, bool) {
	v, exists := p[key]
	if !exists || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FloatOr returns Float(key) or def when absent or malformed.
func (p Params) FloatOr(key string, def float64) float64 {
	if f, ok := p.Float(key); ok {
		return f
	}
	return def
}

// IntOr returns the integer value of key or def.
func (p Params) IntOr(key string, def int) int {
	if f, ok := p.Float(key); ok {
		return int(f)
	}
	return def
}

// StringOr returns the string value of key or def.
func (p Params) StringOr(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Key renders params as a stable "k=v,k=v" string.
func (p Params) Key() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, ",")
}

// ParamGrid maps a parameter name to its candidate values.
type ParamGrid map[string][]any
