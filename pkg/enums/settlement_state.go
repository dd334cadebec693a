package enums

import "fmt"

// SettlementState is the derived payment phase of a project. Transitions are
// monotonic: none -> advance_paid -> fully_paid, with full payments allowed
// to jump straight to fully_paid.
type SettlementState string

const (
	SettlementStateNone        SettlementState = "none"
	SettlementStateAdvancePaid SettlementState = "advance_paid"
	SettlementStateFullyPaid   SettlementState = "fully_paid"
)

var validSettlementStates = []SettlementState{
	SettlementStateNone,
	SettlementStateAdvancePaid,
	SettlementStateFullyPaid,
}

// String implements fmt.Stringer.
func (s SettlementState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementState.
func (s SettlementState) IsValid() bool {
	for _, candidate := range validSettlementStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// Rank orders states for monotonicity checks; higher never regresses to lower.
func (s SettlementState) Rank() int {
	switch s {
	case SettlementStateAdvancePaid:
		return 1
	case SettlementStateFullyPaid:
		return 2
	default:
		return 0
	}
}

// ParseSettlementState converts raw input into a SettlementState.
func ParseSettlementState(value string) (SettlementState, error) {
	for _, candidate := range validSettlementStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement state %q", value)
}
