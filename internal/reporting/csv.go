package reporting

import (
	"fmt"
	"strings"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

// RenderTradesCSV renders flattened run trades as CSV string.
func RenderTradesCSV(trades []domain.RunTrade) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,run_id,step,symbol,tf,profile,fold_start,fold_end,")
	sb.WriteString("entry_time,entry_price,exit_time,exit_price,pnl_pct,bars,reason\n")

	// Rows
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s,%d,%d,%d,%.8f,%d,%.8f,%.6f,%d,%s\n",
			t.TradeID,
			t.RunID,
			t.Step,
			t.Symbol,
			t.Timeframe,
			t.Profile,
			t.FoldStart,
			t.FoldEnd,
			t.EntryTime,
			t.EntryPrice,
			t.ExitTime,
			t.ExitPrice,
			t.PnlPct,
			t.Bars,
			t.Reason,
		))
	}

	return sb.String()
}

// RenderProfileMetricsCSV renders pooled (step, profile) metrics as CSV string.
func RenderProfileMetricsCSV(rows []ProfileMetricRow) string {
	var sb strings.Builder

	sb.WriteString("step,profile,symbols,trades,win_rate,expectancy,pf,mdd,cagr,median_pnl,max_consecutive_losses\n")
	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d\n",
			m.Step, m.Profile, m.Symbols, m.Trades,
			m.WinRate, m.Expectancy, m.PF, m.MDD, m.CAGR, m.MedianPnl, m.MaxConsLoss))
	}

	return sb.String()
}
