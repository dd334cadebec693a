package enums

import "fmt"

// CheckoutGroupStatus tracks persistence progress of a checkout's order fan-out.
type CheckoutGroupStatus string

const (
	CheckoutGroupStatusPending            CheckoutGroupStatus = "pending"
	CheckoutGroupStatusComplete           CheckoutGroupStatus = "complete"
	CheckoutGroupStatusPartiallyPersisted CheckoutGroupStatus = "partially_persisted"
	CheckoutGroupStatusReconciled         CheckoutGroupStatus = "reconciled"
)

var validCheckoutGroupStatuses = []CheckoutGroupStatus{
	CheckoutGroupStatusPending,
	CheckoutGroupStatusComplete,
	CheckoutGroupStatusPartiallyPersisted,
	CheckoutGroupStatusReconciled,
}

// String implements fmt.Stringer.
func (c CheckoutGroupStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutGroupStatus.
func (c CheckoutGroupStatus) IsValid() bool {
	for _, candidate := range validCheckoutGroupStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutGroupStatus converts raw input into a CheckoutGroupStatus.
func ParseCheckoutGroupStatus(value string) (CheckoutGroupStatus, error) {
	for _, candidate := range validCheckoutGroupStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout group status %q", value)
}
