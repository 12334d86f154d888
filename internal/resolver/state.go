package resolver

import "fmt"

// State is a step of a single resolution.
type State int

const (
	StateInit State = iota
	StateCacheHit
	StateCacheMiss
	StatePrimaryAttempt
	StatePrimaryExhausted
	StateFallbackAttempt
	StateResolved
	StateUnavailable
)

var stateNames = map[State]string{
	StateInit:             "init",
	StateCacheHit:         "cache_hit",
	StateCacheMiss:        "cache_miss",
	StatePrimaryAttempt:   "primary_attempt",
	StatePrimaryExhausted: "primary_exhausted",
	StateFallbackAttempt:  "fallback_attempt",
	StateResolved:         "resolved",
	StateUnavailable:      "unavailable",
}

// String returns the snake_case name used in logs.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == StateCacheHit || s == StateResolved || s == StateUnavailable
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown resolution state %q", text)
}
