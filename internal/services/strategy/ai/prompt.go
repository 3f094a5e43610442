package ai

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
)

// systemPrompt defines the instructions for the AI trading assistant.
const systemPrompt = `You are a cryptocurrency trading AI assistant for spot trading. Your role is to analyze market data and make informed trading decisions based on technical analysis.

## Your Responsibilities:
1. Analyze provided market data including prices, technical indicators, and account balance
2. Make rational trading decisions based on technical analysis
3. Manage risk appropriately
4. Respond ONLY with valid JSON in the specified format

## Input Data Format:
You will receive market data including:
- Current price and recent price history
- Technical indicators: EMA (20, 50 periods), SMA (20 periods), MACD, RSI (7, 14 periods), ATR (14 periods), Bollinger Bands
- Account information: available balance, current position (if any)
- Trading pair

## Output Format:
You MUST respond with ONLY a JSON object in this exact format:

{
  "decision": {
    "action": "buy|sell|hold|close",
    "confidence": 0.75,
    "risk_percent": 5.0,
    "reasoning": "Brief explanation of your decision (1-2 sentences)"
  }
}

## Field Descriptions:
- **action**: Must be one of:
  - "buy": Open a new long position
  - "sell": Close the existing position (alias for "close")
  - "hold": Take no action, maintain current position
  - "close": Close existing position

- **confidence**: Your confidence level in this decision (0.0 to 1.0)
  - Below 0.6: Low confidence (should typically use "hold")

- **risk_percent**: Percentage of available balance to use for the trade (1.0-15.0)
  - This is SPOT trading - you're buying real assets with available balance
  - Never use more than 15% on a single trade

- **reasoning**: Brief explanation of your decision
  - Mention key technical factors
  - Keep it concise (1-2 sentences)

## Trading Rules:
1. Never use more than 15% of account balance on a single trade
2. Use EMA crossovers for trend identification, RSI for overbought/oversold, MACD for momentum, ATR for volatility
3. Only take "buy" action with confidence >= 0.60
4. Do not open new positions when one already exists
5. Use "hold" when market conditions are unclear

## Important Notes:
- DO NOT include any text outside the JSON object
- DO NOT use markdown code blocks or formatting
- ALWAYS provide valid, parseable JSON
- Be conservative - when in doubt, use "hold"
- Prioritize capital preservation over profit maximization`

// buildPrompt constructs the per-step market prompt for the LLM.
func buildPrompt(input strategy.Input) string {
	var sb strings.Builder

	candles := input.Market.Candles
	latest := candles[len(candles)-1]

	sb.WriteString(fmt.Sprintf("# Market Analysis for %s\n\n", input.State.Pair.String()))
	sb.WriteString("## Current Market State\n\n")
	sb.WriteString(fmt.Sprintf("**Current Price:** %s\n", latest.Close.String()))

	if ind := input.Market.Indicators; ind != nil {
		sb.WriteString(fmt.Sprintf("**EMA20:** %s\n", ind.EMA20.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("**EMA50:** %s\n", ind.EMA50.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("**SMA20:** %s\n", ind.SMA20.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("**MACD:** %s\n", ind.MACD.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("**RSI (7-period):** %s\n", ind.RSI7.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("**RSI (14-period):** %s\n", ind.RSI14.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("**ATR (14-period):** %s\n", ind.ATR14.StringFixed(2)))
		sb.WriteString(fmt.Sprintf("**Bollinger Bands:** %s / %s\n",
			ind.BollingerLower.StringFixed(2), ind.BollingerUpper.StringFixed(2)))
	} else {
		sb.WriteString("**Indicators:** warming up, not yet available\n")
	}
	sb.WriteString("\n")

	// Recent price action (last 10 candles)
	sb.WriteString("## Recent Price Action (oldest → newest)\n\n")
	startIdx := len(candles) - 10
	if startIdx < 0 {
		startIdx = 0
	}

	sb.WriteString("Close prices: [")
	for i := startIdx; i < len(candles); i++ {
		if i > startIdx {
			sb.WriteString(", ")
		}
		sb.WriteString(candles[i].Close.StringFixed(2))
	}
	sb.WriteString("]\n\n")

	// Account information
	cash := input.Portfolio.Holding(input.State.Pair.To)
	held := input.State.PositionSize

	sb.WriteString("## Account Information\n\n")
	sb.WriteString(fmt.Sprintf("**Available Balance (%s):** %s\n", input.State.Pair.To, cash.StringFixed(2)))

	if held.GreaterThan(decimal.Zero) {
		sb.WriteString("\n**Current Position:**\n")
		sb.WriteString(fmt.Sprintf("- Entry Price: %s\n", input.State.AvgEntryPrice.String()))
		sb.WriteString(fmt.Sprintf("- Amount: %s\n", held.String()))

		if input.State.AvgEntryPrice.GreaterThan(decimal.Zero) {
			pnl := latest.Close.Sub(input.State.AvgEntryPrice).Mul(held)
			pnlPercent := pnl.Div(input.State.AvgEntryPrice.Mul(held)).Mul(decimal.NewFromInt(100))
			sb.WriteString(fmt.Sprintf("- Unrealized P&L: %s (%s%%)\n", pnl.StringFixed(2), pnlPercent.StringFixed(2)))
		}
	} else {
		sb.WriteString("\n**Current Position:** None\n")
	}

	sb.WriteString("\n## Instructions\n\n")
	sb.WriteString("Based on the market data above, provide your trading decision in JSON format.\n")
	if held.GreaterThan(decimal.Zero) {
		sb.WriteString("You currently have an open position. Decide whether to hold or close it.\n")
	} else {
		sb.WriteString("You have no open position. Decide whether to buy, or hold (wait).\n")
	}

	return sb.String()
}
