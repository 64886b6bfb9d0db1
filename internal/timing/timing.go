// Package timing records how long the steps of a run take.
package timing

import (
	"fmt"
	"sync"
	"time"
)

// Step is the duration of one named step.
type Step struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
}

// Recorder collects step durations in the order steps finish.
type Recorder struct {
	mu    sync.Mutex
	now   func() time.Time
	steps []Step
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Track starts timing name; the returned function stops it.
//
//	defer rec.Track("load_catalog")()
func (r *Recorder) Track(name string) func() {
	start := r.now()
	return func() {
		d := r.now().Sub(start)
		r.mu.Lock()
		r.steps = append(r.steps, Step{Name: name, DurationMs: d.Milliseconds()})
		r.mu.Unlock()
	}
}

// Steps returns a copy of the recorded steps.
func (r *Recorder) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// FormatDuration renders d as hh:mm:ss.
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
