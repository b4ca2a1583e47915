package ledger

import "fmt"

// BookingMethod defines how a reducing posting selects the lots it consumes.
type BookingMethod int

const (
	// Strict requires exactly one matching lot; ambiguity is an error.
	Strict BookingMethod = iota
	// StrictWithSize is like Strict but the lot size must also match.
	StrictWithSize
	// NoBooking never matches: every posting augments, allowing negative
	// holdings at cost.
	NoBooking
	// Average collapses the account's positions per currency to a single
	// average-cost lot before matching.
	Average
	// Fifo consumes the oldest lots first.
	Fifo
	// Lifo consumes the newest lots first.
	Lifo
	// Hifo consumes the highest-cost lots first.
	Hifo
)

func (m BookingMethod) String() string {
	switch m {
	case Strict:
		return "STRICT"
	case StrictWithSize:
		return "STRICT_WITH_SIZE"
	case NoBooking:
		return "NONE"
	case Average:
		return "AVERAGE"
	case Fifo:
		return "FIFO"
	case Lifo:
		return "LIFO"
	case Hifo:
		return "HIFO"
	default:
		return "unknown"
	}
}

// ParseBookingMethod parses a string into a BookingMethod.
func ParseBookingMethod(s string) (BookingMethod, error) {
	switch s {
	case "STRICT":
		return Strict, nil
	case "STRICT_WITH_SIZE":
		return StrictWithSize, nil
	case "NONE":
		return NoBooking, nil
	case "AVERAGE":
		return Average, nil
	case "FIFO":
		return Fifo, nil
	case "LIFO":
		return Lifo, nil
	case "HIFO":
		return Hifo, nil
	default:
		return 0, fmt.Errorf("unknown booking method: %q", s)
	}
}
