package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/limeking/psa-next-hts-coin/internal/decision"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Scenario Report %s\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Created | %s |\n", time.UnixMilli(r.CreatedAt).UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("| Chain Mode | %s |\n", r.ChainMode))
	sb.WriteString(fmt.Sprintf("| Symbols | %d |\n", r.Symbols))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Cost Profiles | %s |\n", strings.Join(r.Profiles, ", ")))
	sb.WriteString("\n")

	// Steps
	sb.WriteString("## Steps\n\n")
	if len(r.Steps) > 0 {
		sb.WriteString("| # | TF | Signal | Period | Symbols | Trades |\n")
		sb.WriteString("|---|----|--------|--------|---------|--------|\n")
		for _, s := range r.Steps {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %d | %d |\n",
				s.Index, s.Timeframe, s.Signal, s.PeriodKey, s.Symbols, s.Trades))
		}
	} else {
		sb.WriteString("No steps recorded.\n")
	}
	sb.WriteString("\n")

	// Profile Metrics
	sb.WriteString("## Profile Metrics\n\n")
	if len(r.ProfileMetrics) > 0 {
		sb.WriteString("| Step | Profile | Symbols | Trades | WinRate | Expectancy | PF | MDD | CAGR | Median | MaxConsLoss |\n")
		sb.WriteString("|------|---------|---------|--------|---------|------------|----|-----|------|--------|-------------|\n")
		for _, m := range r.ProfileMetrics {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %d |\n",
				m.Step, m.Profile, m.Symbols, m.Trades,
				m.WinRate, m.Expectancy, m.PF, m.MDD, m.CAGR, m.MedianPnl, m.MaxConsLoss))
		}
	} else {
		sb.WriteString("No trades recorded.\n")
	}
	sb.WriteString("\n")

	// Symbol Metrics
	sb.WriteString("## Symbol Metrics\n\n")
	if len(r.SymbolMetrics) > 0 {
		sb.WriteString("| Step | Symbol | Folds | Trades | PF | WinRate | MDD |\n")
		sb.WriteString("|------|--------|-------|--------|----|---------|-----|\n")
		for _, m := range r.SymbolMetrics {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %.4f | %.4f | %.4f |\n",
				m.Step, m.Symbol, m.Folds, m.Trades, m.PF, m.WinRate, m.MDD))
		}
	} else {
		sb.WriteString("No symbol results.\n")
	}
	sb.WriteString("\n")

	// Viability
	if len(r.Viability) > 0 {
		sb.WriteString("## Viability\n\n")
		sb.WriteString(decision.RenderMarkdown(r.Viability))
	}

	// Groups
	if len(r.Groups) > 0 {
		sb.WriteString("## Theme Groups\n\n")
		sb.WriteString("| Theme | Count | PF | WinRate | MDD | Symbols |\n")
		sb.WriteString("|-------|-------|----|---------|-----|---------|\n")
		for _, g := range r.Groups {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.4f | %.4f | %s |\n",
				g.Name, g.Count, g.PF, g.WinRate, g.MDD, strings.Join(g.Symbols, ", ")))
		}
		sb.WriteString("\n")
	}

	// Errors (always shown if present)
	if len(r.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
