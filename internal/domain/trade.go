package domain

// Trade is one closed round trip. Immutable once appended to a ledger.
type Trade struct {
	EntryTime  int64   `json:"entryTime"`  // fill bar time (s)
	EntryPrice float64 `json:"entryPrice"` // after slippage and half fee
	ExitTime   int64   `json:"exitTime"`
	ExitPrice  float64 `json:"exitPrice"`
	PnlPct     float64 `json:"pnlPct"`
	Bars       int     `json:"bars"`
	Reason     string  `json:"reason"`
}

// Exit reason codes
const (
	ExitReasonStopLoss       = "stop_loss"
	ExitReasonTakeProfit     = "take_profit"
	ExitReasonTrailingStop   = "trailing_stop"
	ExitReasonOppositeSignal = "opposite_signal"
	ExitReasonTimeLimit      = "time_limit"
	ExitReasonForceClose     = "force_close_at_end"
	ExitReasonEOT            = "EOT"
)
