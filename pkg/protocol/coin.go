package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Coin is an amount in a single currency denomination.
// Amounts travel as decimal strings on the wire.
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount,string"`
}

// NewCoin returns a Coin of amount in denom.
func NewCoin(amount uint64, denom string) Coin {
	return Coin{Denom: denom, Amount: amount}
}

// IsZero reports whether the coin carries no value.
func (c Coin) IsZero() bool { return c.Amount == 0 }

func (c Coin) String() string {
	return strconv.FormatUint(c.Amount, 10) + c.Denom
}

// ParseCoin parses the compact form "100uxion".
func ParseCoin(s string) (Coin, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return Coin{}, fmt.Errorf("invalid coin %q: missing amount", s)
	}
	if i == len(s) {
		return Coin{}, fmt.Errorf("invalid coin %q: missing denom", s)
	}
	amount, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return Coin{}, fmt.Errorf("invalid coin %q: %w", s, err)
	}
	return Coin{Denom: s[i:], Amount: amount}, nil
}

// ParseCoins parses a comma-separated list such as "100uxion,5ustake".
// An empty string yields no coins.
func ParseCoins(s string) ([]Coin, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	coins := make([]Coin, 0, len(parts))
	for _, p := range parts {
		c, err := ParseCoin(p)
		if err != nil {
			return nil, err
		}
		coins = append(coins, c)
	}
	return coins, nil
}

// AmountOf returns the amount of the first coin in denom, or 0 when none matches.
func AmountOf(coins []Coin, denom string) uint64 {
	for _, c := range coins {
		if c.Denom == denom {
			return c.Amount
		}
	}
	return 0
}
