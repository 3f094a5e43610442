// Package render prints backtest reports to the terminal.
package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
)

var (
	subtle = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	good   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	bad    = lipgloss.AdaptiveColor{Light: "#D94F70", Dark: "#F25D94"}
	accent = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(accent).
			Padding(0, 2).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(subtle).
			Padding(1, 2)

	labelStyle = lipgloss.NewStyle().Foreground(subtle).Width(22)
	gainStyle  = lipgloss.NewStyle().Foreground(good).Bold(true)
	lossStyle  = lipgloss.NewStyle().Foreground(bad).Bold(true)
)

// Report returns the styled terminal rendering of one run report.
func Report(r *domain.Report) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("BACKTEST %s %s %s", r.StrategyID, r.Pair.String(), r.Interval)))
	sb.WriteString("\n")

	var body strings.Builder
	body.WriteString(row("Range", fmt.Sprintf("%s .. %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))))
	body.WriteString(row("Initial capital", r.InitialCapital.StringFixed(2)))
	body.WriteString(row("Final capital", r.FinalCapital.StringFixed(2)))
	body.WriteString(row("Total P&L", signedAmount(r.Metrics.TotalPnLAbsolute, r.Metrics.TotalPnLPercent)))
	body.WriteString(row("Trades", fmt.Sprintf("%d (%d wins / %d losses)", r.Metrics.TotalTrades, r.Metrics.WinningTrades, r.Metrics.LosingTrades)))
	body.WriteString(row("Win/loss ratio", formatRatio(r.Metrics.WinLossRatio)))
	body.WriteString(row("Avg win / loss", fmt.Sprintf("%s / %s", r.Metrics.AverageWinAmount.StringFixed(2), r.Metrics.AverageLossAmount.StringFixed(2))))
	body.WriteString(row("Max drawdown", r.Metrics.MaxDrawdown.Mul(decimal.NewFromInt(100)).StringFixed(2)+"%"))

	if r.Metrics.SharpeRatio != nil {
		body.WriteString(row("Sharpe ratio", fmt.Sprintf("%.4f", *r.Metrics.SharpeRatio)))
	} else {
		body.WriteString(row("Sharpe ratio", "n/a"))
	}
	if r.Metrics.BuyAndHoldPnLPercent != nil {
		body.WriteString(row("Buy & hold", r.Metrics.BuyAndHoldPnLPercent.StringFixed(2)+"%"))
	}

	sb.WriteString(boxStyle.Render(strings.TrimRight(body.String(), "\n")))
	sb.WriteString("\n")

	return sb.String()
}

// Comparison renders several reports ranked by total P&L percent.
func Comparison(reports []*domain.Report) string {
	ranked := make([]*domain.Report, len(reports))
	copy(ranked, reports)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Metrics.TotalPnLPercent.GreaterThan(ranked[j].Metrics.TotalPnLPercent)
	})

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("STRATEGY COMPARISON"))
	sb.WriteString("\n")

	var body strings.Builder
	for _, r := range ranked {
		pnl := r.Metrics.TotalPnLPercent
		value := pnl.StringFixed(2) + "%"
		if pnl.IsNegative() {
			value = lossStyle.Render(value)
		} else {
			value = gainStyle.Render(value)
		}
		body.WriteString(fmt.Sprintf("%s %s  (%d trades)\n",
			labelStyle.Render(r.StrategyID), value, r.Metrics.TotalTrades))
	}

	sb.WriteString(boxStyle.Render(strings.TrimRight(body.String(), "\n")))
	sb.WriteString("\n")

	return sb.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + " " + value + "\n"
}

func signedAmount(abs, pct decimal.Decimal) string {
	text := fmt.Sprintf("%s (%s%%)", abs.StringFixed(2), pct.StringFixed(2))
	if abs.IsNegative() {
		return lossStyle.Render(text)
	}
	return gainStyle.Render(text)
}

func formatRatio(ratio float64) string {
	if math.IsInf(ratio, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", ratio)
}
