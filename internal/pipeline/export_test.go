package pipeline

import "time"

// SetBackoff shortens retry sleeps in tests.
func SetBackoff(p *Pipeline, d time.Duration) {
	p.backoff = d
}
