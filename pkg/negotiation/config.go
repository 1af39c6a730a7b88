package negotiation

import "time"

// Config holds the supervisory thresholds and runner limits
type Config struct {
	// MaxRounds forces an impasse once roundCount reaches it without agreement
	MaxRounds int `yaml:"max_rounds"`
	// StagnationWindow is the number of most recent proposed prices inspected
	StagnationWindow int `yaml:"stagnation_window"`
	// StagnationEpsilonPct is the minimum step, as a fraction of the initial price, for a round to count as movement
	StagnationEpsilonPct float64 `yaml:"stagnation_epsilon_pct"`
	// PriceGapPct is the largest tolerated distance from the target price, as a fraction of it
	PriceGapPct float64 `yaml:"price_gap_pct"`
	// PriceGapMinRounds is the number of counter rounds before the price gap is enforced
	PriceGapMinRounds int `yaml:"price_gap_min_rounds"`
	// MaxTurns bounds a Runner loop
	MaxTurns int `yaml:"max_turns"`
	// MaxInvalidTurns is how many rejected tool calls the Runner feeds back to the agent before giving up
	MaxInvalidTurns int `yaml:"max_invalid_turns"`
	// LockTTL bounds how long a turn may hold the cross-process lock
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxRounds:            8,
		StagnationWindow:     3,
		StagnationEpsilonPct: 0.01,
		PriceGapPct:          0.40,
		PriceGapMinRounds:    1,
		MaxTurns:             24,
		MaxInvalidTurns:      2,
		LockTTL:              30 * time.Second,
	}
}
