package driven

import "time"

// Clock supplies the current time for booking windows, quota periods, and
// "active now" queries.
type Clock interface {
	Now() time.Time
}
