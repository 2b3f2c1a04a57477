package setup

import "time"

// Clock abstracts the readiness-poll wait so tests can run without real
// sleeps.
type Clock interface {
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }
