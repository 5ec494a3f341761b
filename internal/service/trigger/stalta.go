// internal/service/trigger/stalta.go

// Package trigger implements the STA/LTA detector: it maintains short- and
// long-window tweet counts over a sequence of fixed-width bins and emits a
// trigger.Trigger when the ratio of short-window activity to the long
// window's expected mean crosses a configurable threshold.
package trigger

import (
	"context"
	"fmt"
	"log"
	"time"

	"essg/internal/domain/trigger"
)

// epsilon guards the ratio computation against division by zero when the
// long-term window is empty.
const epsilon = 1e-9

// BinCounter is the dependency the detector pulls closed-bin counts from,
// backed by the tweet window store.
type BinCounter interface {
	CountBin(ctx context.Context, start time.Time, binLength time.Duration) (int, error)
}

// Config holds the STA/LTA tuning parameters from the SETUP config
// section.
type Config struct {
	BinLength          time.Duration
	LTALength          time.Duration
	STALength          time.Duration
	M, B               float64
	DetectionThreshold float64
	TriggerReset       time.Duration
	BinLoadDelay       time.Duration
}

// Detector owns the running bin counters exclusively; no other component
// may read or mutate them directly. It is safe to call Tick from a single
// goroutine only — it is not itself safe for concurrent use.
type Detector struct {
	cfg   Config
	store BinCounter
	log   *log.Logger

	bins            []trigger.Bin // trailing window, oldest first
	state           trigger.State
	lastTriggerTime time.Time
	nextBinStart    time.Time
}

// New creates a Detector. firstBinStart is the start of the first bin the
// detector will attempt to close.
func New(cfg Config, store BinCounter, logger *log.Logger, firstBinStart time.Time) *Detector {
	if logger == nil {
		logger = log.Default()
	}
	return &Detector{
		cfg:          cfg,
		store:        store,
		log:          logger,
		state:        trigger.StateIdle,
		nextBinStart: firstBinStart,
	}
}

// State returns the detector's current lifecycle stage.
func (d *Detector) State() trigger.State { return d.state }

// binsForLTA is how many bins the trailing window must hold to fill the
// LTA window (and thus leave StateIdle).
func (d *Detector) binsForLTA() int {
	return int(d.cfg.LTALength / d.cfg.BinLength)
}

func (d *Detector) binsForSTA() int {
	return int(d.cfg.STALength / d.cfg.BinLength)
}

// Tick closes the oldest not-yet-closed bin (now older than bin_load_delay
// behind now), updates the running counters, and returns a Trigger if the
// detection threshold crossed and cooldown has elapsed. It returns
// (nil, nil) when no detection fired this tick.
//
// A bin-read failure leaves the detector's state unchanged; the same bin
// is retried on the next call.
func (d *Detector) Tick(ctx context.Context, now time.Time) (*trigger.Trigger, error) {
	binEnd := d.nextBinStart.Add(d.cfg.BinLength)
	if now.Before(binEnd.Add(d.cfg.BinLoadDelay)) {
		return nil, nil // bin not old enough yet; nothing to close
	}

	count, err := d.store.CountBin(ctx, d.nextBinStart, d.cfg.BinLength)
	if err != nil {
		d.log.Printf("ERROR stalta: bin read failed for %s, will retry: %v", d.nextBinStart, err)
		return nil, fmt.Errorf("reading bin %s: %w", d.nextBinStart, err)
	}

	closed := trigger.Bin{Start: d.nextBinStart, Count: count}
	d.bins = append(d.bins, closed)
	d.nextBinStart = d.nextBinStart.Add(d.cfg.BinLength)
	d.trimRetention()

	stats := d.runningStats()

	if d.state == trigger.StateIdle {
		if len(d.bins) >= d.binsForLTA() {
			d.state = trigger.StateArmed
		}
		return nil, nil
	}

	if d.state == trigger.StateFired {
		// The trigger emitted on the previous tick; this tick is the first
		// opportunity to observe it, so move on to cooldown now.
		d.state = trigger.StateCooldown
	}

	if d.state == trigger.StateCooldown {
		if now.Sub(d.lastTriggerTime) >= d.cfg.TriggerReset {
			d.state = trigger.StateArmed
		} else {
			return nil, nil
		}
	}

	ratioDenom := float64(stats.LTACount) / (float64(d.cfg.LTALength) / float64(d.cfg.STALength))
	if ratioDenom < epsilon {
		ratioDenom = epsilon
	}
	ratio := float64(stats.STACount) / ratioDenom
	score := d.cfg.M*ratio + d.cfg.B

	if score >= d.cfg.DetectionThreshold && now.Sub(d.lastTriggerTime) >= d.cfg.TriggerReset {
		d.lastTriggerTime = now
		d.state = trigger.StateFired

		return &trigger.Trigger{
			Time:      closed.End(d.cfg.BinLength),
			STA:       stats.STACount,
			LTA:       stats.LTACount,
			Ratio:     ratio,
			Threshold: d.cfg.DetectionThreshold,
		}, nil
	}

	return nil, nil
}

// runningStats sums the trailing sta_length and lta_length windows of
// closed bins.
func (d *Detector) runningStats() trigger.RunningStats {
	var stats trigger.RunningStats

	staBins := d.binsForSTA()
	ltaBins := d.binsForLTA()

	n := len(d.bins)
	for i := 0; i < n; i++ {
		idx := n - 1 - i
		stats.LTACount += d.bins[idx].Count
		if i < staBins {
			stats.STACount += d.bins[idx].Count
		}
		if i+1 >= ltaBins {
			break
		}
	}

	return stats
}

// trimRetention drops bins older than lta_length + sta_length seconds
// behind the most recent closed bin, per the Bin retention invariant.
func (d *Detector) trimRetention() {
	retain := d.binsForLTA() + d.binsForSTA()
	if len(d.bins) > retain {
		d.bins = d.bins[len(d.bins)-retain:]
	}
}
