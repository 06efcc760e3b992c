package strategy

import (
	"math"
	"strconv"
	"strings"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/indicators"
)

// Combo leaf keys
const (
	LeafClose            = "close"
	LeafReturn           = "return"
	LeafPriceChangePct   = "price_change_pct"
	LeafVolume           = "volume"
	LeafTradeValue       = "trade_value"
	LeafVolumeChangeRate = "volume_change_rate"
	LeafRSI              = "rsi"
	LeafSMA              = "sma"
	LeafEMA              = "ema"
	LeafMACross          = "ma_cross"
	LeafMAGap            = "ma_gap"
)

// Cross operators for ma_cross leaves
const (
	OpCrossUp   = "cross_up"
	OpCrossDown = "cross_down"
)

const defaultRSIPeriod = 14

// EvaluateCombo evaluates a condition combination into an entry signal.
// Unknown keys or comparators yield all-false leaves; a nil combo or an
// empty tree yields an all-false signal.
func EvaluateCombo(series domain.Series, combo *domain.Combo) domain.Signal {
	if combo == nil {
		return domain.NewSignal(len(series))
	}
	ev := &comboEvaluator{series: series, cache: make(map[string][]float64)}
	return ev.node(combo.Root)
}

// ComboFromConditions folds the flat builder list left to right: each
// row joins the accumulated tree with its own Logic (AND when empty).
func ComboFromConditions(name string, conds []domain.ComboCondition) *domain.Combo {
	combo := &domain.Combo{Name: name}
	if len(conds) == 0 {
		return combo
	}
	acc := leafFromCondition(conds[0])
	for _, c := range conds[1:] {
		logic := strings.ToUpper(strings.TrimSpace(c.Logic))
		if logic != domain.LogicOr {
			logic = domain.LogicAnd
		}
		acc = domain.ComboNode{Logic: logic, Children: []domain.ComboNode{acc, leafFromCondition(c)}}
	}
	combo.Root = acc
	return combo
}

func leafFromCondition(c domain.ComboCondition) domain.ComboNode {
	return domain.ComboNode{
		Key:      c.Type,
		Operator: c.Operator,
		Value:    c.Value,
		Period:   c.Period,
		Fast:     c.Fast,
		Slow:     c.Slow,
	}
}

type comboEvaluator struct {
	series domain.Series
	cache  map[string][]float64
}

func (e *comboEvaluator) node(n domain.ComboNode) domain.Signal {
	if n.IsLeaf() {
		return e.leaf(n)
	}
	if len(n.Children) == 0 {
		return domain.NewSignal(len(e.series))
	}
	or := strings.EqualFold(n.Logic, domain.LogicOr)
	if !or && n.Logic != "" && !strings.EqualFold(n.Logic, domain.LogicAnd) {
		return domain.NewSignal(len(e.series))
	}
	acc := e.node(n.Children[0])
	for _, c := range n.Children[1:] {
		if or {
			acc = acc.Or(e.node(c))
		} else {
			acc = acc.And(e.node(c))
		}
	}
	return acc
}

func (e *comboEvaluator) leaf(n domain.ComboNode) domain.Signal {
	size := len(e.series)
	key := strings.ToLower(strings.TrimSpace(n.Key))

	if key == LeafMACross {
		fast, slow := orDefault(n.Fast, 5), orDefault(n.Slow, 20)
		if fast <= 0 || slow <= 0 {
			return domain.NewSignal(size)
		}
		f, s := e.sma(fast), e.sma(slow)
		switch crossOp(n.Operator) {
		case OpCrossUp:
			return toSignal(indicators.CrossAbove(f, s))
		case OpCrossDown:
			return toSignal(indicators.CrossBelow(f, s))
		default:
			return domain.NewSignal(size)
		}
	}

	cmp, ok := comparator(n.Operator)
	if !ok {
		return domain.NewSignal(size)
	}

	var lhs, rhs []float64
	switch key {
	case LeafClose:
		lhs = e.series.Closes()
	case LeafReturn, LeafPriceChangePct:
		lhs = e.cached("ret", func() []float64 { return indicators.PctChange(e.series.Closes()) })
	case LeafVolume:
		lhs = e.series.Volumes()
	case LeafTradeValue:
		lhs = e.cached("tv", func() []float64 {
			out := make([]float64, size)
			for i, c := range e.series {
				out[i] = c.Close * c.Volume
			}
			return out
		})
	case LeafVolumeChangeRate:
		lhs = e.cached("vchg", func() []float64 { return indicators.PctChange(e.series.Volumes()) })
	case LeafRSI:
		p := orDefault(n.Period, defaultRSIPeriod)
		if p <= 0 {
			return domain.NewSignal(size)
		}
		lhs = e.cached(keyed("rsi", p), func() []float64 { return indicators.RSI(e.series.Closes(), p) })
	case LeafSMA, LeafEMA:
		if n.Period <= 0 {
			return domain.NewSignal(size)
		}
		lhs = e.series.Closes()
		if key == LeafSMA {
			rhs = e.sma(n.Period)
		} else {
			p := n.Period
			rhs = e.cached(keyed("ema", p), func() []float64 { return indicators.EMA(e.series.Closes(), p) })
		}
	case LeafMAGap:
		fast, slow := orDefault(n.Fast, 5), orDefault(n.Slow, 20)
		if fast <= 0 || slow <= 0 {
			return domain.NewSignal(size)
		}
		f, s := e.sma(fast), e.sma(slow)
		lhs = make([]float64, size)
		for i := range lhs {
			if s[i] == 0 {
				lhs[i] = math.NaN()
				continue
			}
			lhs[i] = (f[i]/s[i] - 1) * 100
		}
	default:
		return domain.NewSignal(size)
	}

	out := domain.NewSignal(size)
	for i := range out {
		r := n.Value
		if rhs != nil {
			r = rhs[i]
		}
		if math.IsNaN(lhs[i]) || math.IsNaN(r) {
			continue
		}
		out[i] = cmp(lhs[i], r)
	}
	return out
}

func (e *comboEvaluator) sma(p int) []float64 {
	return e.cached(keyed("sma", p), func() []float64 { return indicators.SMA(e.series.Closes(), p) })
}

func (e *comboEvaluator) cached(key string, fn func() []float64) []float64 {
	if v, ok := e.cache[key]; ok {
		return v
	}
	v := fn()
	e.cache[key] = v
	return v
}

func keyed(name string, p int) string {
	return name + ":" + strconv.Itoa(p)
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// comparator maps an operator token onto a comparison.
func comparator(op string) (func(a, b float64) bool, bool) {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "gt", ">":
		return func(a, b float64) bool { return a > b }, true
	case "lt", "<":
		return func(a, b float64) bool { return a < b }, true
	case "gte", ">=":
		return func(a, b float64) bool { return a >= b }, true
	case "lte", "<=":
		return func(a, b float64) bool { return a <= b }, true
	case "eq", "=", "==":
		return func(a, b float64) bool { return a == b }, true
	case "neq", "!=":
		return func(a, b float64) bool { return a != b }, true
	default:
		return nil, false
	}
}

func crossOp(op string) string {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case OpCrossUp, "golden", "상향돌파":
		return OpCrossUp
	case OpCrossDown, "dead", "하향돌파":
		return OpCrossDown
	default:
		return ""
	}
}
