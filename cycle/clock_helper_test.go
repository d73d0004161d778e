package cycle

import "github.com/benbjohnson/clock"

// newMockClock returns a benbjohnson/clock mock seeded at an arbitrary
// fixed instant, for deterministic heartbeat-interval tests.
func newMockClock() *clock.Mock {
	return clock.NewMock()
}
