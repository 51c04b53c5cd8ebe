package model

import (
	"encoding/json"
	"fmt"
)

// Order is a folder's position among public folders.
// It is either Ordered(n) or Unordered; the zero value is Unordered.
type Order struct {
	pos int
	set bool
}

// Unordered is the position of a folder that was never reordered.
var Unordered = Order{}

// Ordered returns an explicit position.
func Ordered(pos int) Order {
	return Order{pos: pos, set: true}
}

// Position returns the explicit position and true, or 0 and false when unordered.
func (o Order) Position() (int, bool) {
	return o.pos, o.set
}

// IsSet reports whether the order holds an explicit position.
func (o Order) IsSet() bool {
	return o.set
}

// Less defines the total order used for sorting: explicit positions ascending,
// and every unordered value after every ordered one. Two unordered values are equal.
func (o Order) Less(other Order) bool {
	switch {
	case o.set && other.set:
		return o.pos < other.pos
	case o.set:
		return true
	default:
		return false
	}
}

// Compare returns -1, 0 or +1 following Less.
func (o Order) Compare(other Order) int {
	if o.Less(other) {
		return -1
	}
	if other.Less(o) {
		return 1
	}
	return 0
}

func (o Order) String() string {
	if !o.set {
		return "unordered"
	}
	return fmt.Sprintf("%d", o.pos)
}

// MarshalJSON encodes an unordered value as null.
func (o Order) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.pos)
}

// UnmarshalJSON accepts null or an integer.
func (o *Order) UnmarshalJSON(data []byte) error {
	var pos *int
	if err := json.Unmarshal(data, &pos); err != nil {
		return err
	}
	if pos == nil {
		*o = Unordered
		return nil
	}
	*o = Ordered(*pos)
	return nil
}
