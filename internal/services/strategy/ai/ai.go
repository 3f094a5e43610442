// Package ai implements an LLM-driven trading strategy. Each step the
// strategy builds a compact market prompt, asks an OpenAI-compatible model
// for a decision and converts it into an order against the simulated
// portfolio.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/backtester/internal/domain"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
	"go.uber.org/zap"
)

// ID is the registry identifier for the LLM-backed strategy.
const ID = "ai"

const maxRiskPercent = 15.0

// Decider abstracts the chat completion client so tests can substitute a
// canned responder.
type Decider interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Strategy implements trading decisions via an LLM. The strategy is
// stateless between steps, position state arrives through the input.
type Strategy struct {
	decider Decider
	logger  *zap.Logger
}

// TradingDecision represents the model's trading decision.
type TradingDecision struct {
	Decision DecisionDetails `json:"decision"`
}

// DecisionDetails contains the details of the trading decision.
type DecisionDetails struct {
	Action      string  `json:"action"`
	Confidence  float64 `json:"confidence"`
	RiskPercent float64 `json:"risk_percent"`
	Reasoning   string  `json:"reasoning"`
}

// New creates an LLM strategy backed by the given decider.
func New(logger *zap.Logger, decider Decider) (*Strategy, error) {
	if decider == nil {
		return nil, errors.New("decider is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Strategy{
		decider: decider,
		logger:  logger,
	}, nil
}

func (s *Strategy) ID() string { return ID }

// IsReady reports whether a decider is wired in.
func (s *Strategy) IsReady() bool { return s.decider != nil }

// Configure accepts no numeric parameters, the model drives all decisions.
func (s *Strategy) Configure(params map[string]decimal.Decimal) error {
	for name := range params {
		return errors.Wrapf(strategy.ErrInvalidParams, "unknown parameter %q", name)
	}

	return nil
}

func (s *Strategy) Initialize(ctx context.Context) error {
	s.logger.Info("initializing AI strategy")
	return nil
}

// Decide asks the model for an action on the current candle. Malformed or
// out-of-range responses degrade to hold rather than aborting the run.
func (s *Strategy) Decide(ctx context.Context, input strategy.Input) (*domain.TradeOrder, error) {
	if len(input.Market.Candles) == 0 {
		return nil, nil
	}

	userPrompt := buildPrompt(input)

	response, err := s.decider.Chat(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get AI decision")
	}

	decision, err := parseDecision(response)
	if err != nil {
		s.logger.Warn("unparseable AI decision, holding",
			zap.Error(err),
			zap.String("response", response))
		return nil, nil
	}

	s.logger.Debug("AI decision",
		zap.String("action", strings.ToUpper(decision.Decision.Action)),
		zap.Float64("confidence", decision.Decision.Confidence),
		zap.String("reasoning", decision.Decision.Reasoning))

	return s.orderFromDecision(decision, input)
}

func (s *Strategy) orderFromDecision(decision *TradingDecision, input strategy.Input) (*domain.TradeOrder, error) {
	currentCandle := input.Market.Candles[len(input.Market.Candles)-1]
	held := strategy.HeldQuantity(input)

	switch decision.Decision.Action {
	case "buy":
		if held.GreaterThan(decimal.Zero) {
			// model ignored an open position, hold instead of pyramiding
			return nil, nil
		}
		fraction := decimal.NewFromFloat(decision.Decision.RiskPercent / 100)
		if fraction.LessThanOrEqual(decimal.Zero) {
			return nil, nil
		}
		qty := strategy.BuyQuantity(input, fraction)
		if qty.LessThanOrEqual(decimal.Zero) {
			return nil, nil
		}

		return &domain.TradeOrder{
			Pair:     input.State.Pair,
			Action:   domain.ActionBuy,
			Quantity: qty,
			Type:     domain.OrderTypeMarket,
			Time:     currentCandle.OpenTime,
			Reason:   decision.Decision.Reasoning,
		}, nil

	case "close", "sell":
		if held.LessThanOrEqual(decimal.Zero) {
			return nil, nil
		}

		return &domain.TradeOrder{
			Pair:     input.State.Pair,
			Action:   domain.ActionSell,
			Quantity: held,
			Type:     domain.OrderTypeMarket,
			Time:     currentCandle.OpenTime,
			Reason:   decision.Decision.Reasoning,
		}, nil

	case "hold":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown action: %s", decision.Decision.Action)
	}
}

// parseDecision parses the LLM response into a TradingDecision.
func parseDecision(response string) (*TradingDecision, error) {
	// Clean up response - remove markdown code blocks if present
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var decision TradingDecision
	if err := json.Unmarshal([]byte(response), &decision); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal JSON response")
	}

	validActions := map[string]bool{"buy": true, "sell": true, "hold": true, "close": true}
	if !validActions[decision.Decision.Action] {
		return nil, fmt.Errorf("invalid action: %s", decision.Decision.Action)
	}

	if decision.Decision.Confidence < 0 || decision.Decision.Confidence > 1 {
		return nil, fmt.Errorf("invalid confidence: %f", decision.Decision.Confidence)
	}

	if decision.Decision.RiskPercent < 0 || decision.Decision.RiskPercent > maxRiskPercent {
		return nil, fmt.Errorf("invalid risk_percent: %f (must be 0-%v)", decision.Decision.RiskPercent, maxRiskPercent)
	}

	return &decision, nil
}
