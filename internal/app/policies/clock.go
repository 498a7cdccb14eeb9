package policies

import "time"

// Clock returns the current time; handlers take it as a dependency so tests can pin it.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}
