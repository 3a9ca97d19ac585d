package app

import "time"

// fpsCounter tracks the rate of grid productions over a one-second
// sliding window.
type fpsCounter struct {
	count int
	since time.Time
	fps   float64
}

func (f *fpsCounter) frame(now time.Time) {
	if f.since.IsZero() {
		f.since = now
	}
	f.count++
	if elapsed := now.Sub(f.since); elapsed >= time.Second {
		f.fps = float64(f.count) / elapsed.Seconds()
		f.count = 0
		f.since = now
	}
}

func (f *fpsCounter) value() float64 {
	return f.fps
}
