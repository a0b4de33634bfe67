package policies

import "time"

// Clock provides the reference date for discount eligibility and stay
// completion. Handlers never read the wall clock directly.
type Clock interface {
	Now() time.Time
	// Today is the current calendar date in the business time zone,
	// represented as UTC midnight.
	Today() time.Time
}
