// internal/service/trigger/runner.go

package trigger

import (
	"context"
	"log"
	"sync"
	"time"

	domaintrigger "essg/internal/domain/trigger"
)

// Runner drives a Detector on a wall-clock schedule aligned to bin_length.
// If a tick's work overruns a bin, the next tick is skipped rather than
// queued: detection is real-time, and a stale tick is not useful.
type Runner struct {
	detector *Detector
	binLen   time.Duration
	onFire   func(domaintrigger.Trigger)
	log      *log.Logger

	busy sync.Mutex
}

// NewRunner creates a Runner over the given Detector. onFire is invoked
// synchronously, from the tick goroutine, whenever a trigger fires.
func NewRunner(detector *Detector, binLength time.Duration, onFire func(domaintrigger.Trigger), logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{detector: detector, binLen: binLength, onFire: onFire, log: logger}
}

// Run blocks, ticking the detector every bin_length until ctx is canceled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.binLen)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.tick(ctx, now)
		}
	}
}

func (r *Runner) tick(ctx context.Context, now time.Time) {
	if !r.busy.TryLock() {
		r.log.Printf("stalta: previous tick still running, skipping tick at %s", now)
		return
	}
	defer r.busy.Unlock()

	t, err := r.detector.Tick(ctx, now)
	if err != nil {
		// already logged by Tick; the next tick retries the same bin.
		return
	}
	if t != nil && r.onFire != nil {
		r.onFire(*t)
	}
}
