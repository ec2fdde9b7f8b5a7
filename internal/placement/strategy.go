package placement

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned when a strategy name is not recognized.
var ErrUnknownStrategy = errors.New("unknown placement strategy")

// Strategy selects which free block satisfies an allocation.
type Strategy uint8

const (
	// NotSet is the zero Strategy. It is never a valid configuration.
	NotSet Strategy = iota
	First
	Best
	Worst
	Next
)

var strategyNames = map[Strategy]string{
	First: "first",
	Best:  "best",
	Worst: "worst",
	Next:  "next",
}

// Strategies lists every usable strategy in a stable order.
func Strategies() []Strategy {
	return []Strategy{First, Best, Worst, Next}
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s names one of the four placement strategies.
func (s Strategy) Valid() bool {
	_, ok := strategyNames[s]
	return ok
}

// ParseStrategy maps "first", "best", "worst" or "next" to its Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return NotSet, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Set and Type let a Strategy be used directly as a command line flag value.
func (s *Strategy) Set(name string) error {
	return s.UnmarshalText([]byte(name))
}

func (s *Strategy) Type() string {
	return "strategy"
}
