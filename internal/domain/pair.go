// Package domain defines core data structures used throughout the backtester.
package domain

import (
	"fmt"
	"strings"
)

// Pair trading pair.
type Pair struct {
	// From base currency symbol.
	From string
	// To quote currency symbol.
	To string
}

// String returns the string representation.
func (p *Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated symbol representation.
func (p *Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}

// PairFromString parses a pair in BASE_QUOTE form, e.g. "BTC_USDT".
func PairFromString(s string) (Pair, error) {
	elements := strings.Split(s, "_")
	if len(elements) != 2 || elements[0] == "" || elements[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair: %q", s)
	}
	return Pair{From: elements[0], To: elements[1]}, nil
}
