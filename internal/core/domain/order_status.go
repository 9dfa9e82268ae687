package domain

import (
	"fmt"
	"strings"
)

// OrderStatus represents the different statuses that a swap order can
// assume. The set is closed, and orderTransitions is the only legal edge set
// among them.
type OrderStatus int

const (
	OrderStatusPending OrderStatus = iota
	OrderStatusDeposited
	OrderStatusProcessing
	OrderStatusComplete
	OrderStatusFailed
	OrderStatusExpired
)

var (
	orderStatusNames = map[OrderStatus]string{
		OrderStatusPending:    "pending",
		OrderStatusDeposited:  "deposited",
		OrderStatusProcessing: "processing",
		OrderStatusComplete:   "complete",
		OrderStatusFailed:     "failed",
		OrderStatusExpired:    "expired",
	}

	orderTransitions = map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusDeposited, OrderStatusExpired},
		OrderStatusDeposited:  {OrderStatusProcessing},
		OrderStatusProcessing: {OrderStatusComplete, OrderStatusFailed},
	}

	// AllOrderStatuses lists every status in lifecycle order.
	AllOrderStatuses = []OrderStatus{
		OrderStatusPending,
		OrderStatusDeposited,
		OrderStatusProcessing,
		OrderStatusComplete,
		OrderStatusFailed,
		OrderStatusExpired,
	}
)

func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

// IsTerminal returns whether no transition can leave the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusComplete ||
		s == OrderStatusFailed ||
		s == OrderStatusExpired
}

// CanTransitionTo returns whether s -> next is an edge of the order
// lifecycle.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, st := range orderTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("unknown order status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *OrderStatus) UnmarshalText(text []byte) error {
	st, err := ParseOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseOrderStatus returns the status matching the given name.
func ParseOrderStatus(name string) (OrderStatus, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for st, n := range orderStatusNames {
		if n == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", name)
}
