// internal/service/trigger/stalta_test.go

package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essg/internal/domain/trigger"
)

// fakeBinCounter returns a pre-scripted count per bin start, in call order.
type fakeBinCounter struct {
	counts []int
	calls  int
}

func (f *fakeBinCounter) CountBin(ctx context.Context, start time.Time, binLength time.Duration) (int, error) {
	if f.calls >= len(f.counts) {
		f.calls++
		return 0, nil
	}
	c := f.counts[f.calls]
	f.calls++
	return c, nil
}

func baseConfig() Config {
	return Config{
		BinLength:          time.Minute,
		LTALength:          10 * time.Minute,
		STALength:          2 * time.Minute,
		M:                  1,
		B:                  0,
		DetectionThreshold: 3,
		TriggerReset:       5 * time.Minute,
		BinLoadDelay:       0,
	}
}

func tickN(t *testing.T, d *Detector, start time.Time, binLen time.Duration, n int) *trigger.Trigger {
	t.Helper()
	var fired *trigger.Trigger
	for i := 0; i < n; i++ {
		now := start.Add(time.Duration(i+1) * binLen)
		tr, err := d.Tick(context.Background(), now)
		require.NoError(t, err)
		if tr != nil {
			fired = tr
		}
	}
	return fired
}

// S1: a flat baseline never crosses the threshold.
func TestDetector_FlatBaselineDoesNotFire(t *testing.T) {
	cfg := baseConfig()
	counts := make([]int, 20)
	for i := range counts {
		counts[i] = 5
	}
	store := &fakeBinCounter{counts: counts}
	start := time.Unix(0, 0).UTC()
	d := New(cfg, store, nil, start)

	fired := tickN(t, d, start, cfg.BinLength, len(counts))
	assert.Nil(t, fired)
}

// S2: a sharp spike after a quiet baseline fires once the LTA window is
// full and the ratio crosses threshold.
func TestDetector_SpikeFires(t *testing.T) {
	cfg := baseConfig()
	counts := make([]int, 10)
	for i := range counts {
		counts[i] = 2
	}
	// Two bins of heavy spike activity feeding the 2-minute STA window.
	counts = append(counts, 50, 50)
	store := &fakeBinCounter{counts: counts}
	start := time.Unix(0, 0).UTC()
	d := New(cfg, store, nil, start)

	fired := tickN(t, d, start, cfg.BinLength, len(counts))
	require.NotNil(t, fired)
	assert.GreaterOrEqual(t, fired.Ratio*cfg.M+cfg.B, cfg.DetectionThreshold)
}

// S3: once fired, the detector suppresses further triggers until
// trigger_reset elapses, even if the ratio remains above threshold.
func TestDetector_CooldownSuppressesRetrigger(t *testing.T) {
	cfg := baseConfig()
	counts := make([]int, 10)
	for i := range counts {
		counts[i] = 2
	}
	// Five straight minutes of spike: first bin of the five should fire,
	// subsequent high bins during the 5-minute cooldown should not.
	for i := 0; i < 5; i++ {
		counts = append(counts, 50)
	}
	store := &fakeBinCounter{counts: counts}
	start := time.Unix(0, 0).UTC()
	d := New(cfg, store, nil, start)

	fireCount := 0
	for i := 0; i < len(counts); i++ {
		now := start.Add(time.Duration(i+1) * cfg.BinLength)
		tr, err := d.Tick(context.Background(), now)
		require.NoError(t, err)
		if tr != nil {
			fireCount++
		}
	}
	assert.Equal(t, 1, fireCount)
}

// The bin-load-delay guard must postpone closing a bin until it is fully
// behind the delay window, not merely behind bin_length.
func TestDetector_BinLoadDelayPostponesClose(t *testing.T) {
	cfg := baseConfig()
	cfg.BinLoadDelay = 30 * time.Second
	store := &fakeBinCounter{counts: []int{7}}
	start := time.Unix(0, 0).UTC()
	d := New(cfg, store, nil, start)

	// One bin_length after start: the bin has ended but the load delay
	// hasn't elapsed yet.
	tr, err := d.Tick(context.Background(), start.Add(cfg.BinLength))
	require.NoError(t, err)
	assert.Nil(t, tr)
	assert.Equal(t, 0, store.calls)

	// Now past bin_length + bin_load_delay: the bin closes.
	tr, err = d.Tick(context.Background(), start.Add(cfg.BinLength+cfg.BinLoadDelay))
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
}

func TestDetector_StateProgression(t *testing.T) {
	cfg := baseConfig()
	// 9 quiet bins (still Idle), a 10th that fills the LTA window (Armed),
	// an 11th heavy spike that fires, then 5 quiet bins spanning the
	// 5-minute trigger_reset before the detector re-arms.
	counts := []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 50, 1, 1, 1, 1, 1}
	store := &fakeBinCounter{counts: counts}
	start := time.Unix(0, 0).UTC()
	d := New(cfg, store, nil, start)

	for i := 0; i < 9; i++ {
		_, err := d.Tick(context.Background(), start.Add(time.Duration(i+1)*cfg.BinLength))
		require.NoError(t, err)
		assert.Equal(t, trigger.StateIdle, d.State())
	}

	// The 10th bin fills the LTA window (10 minutes / 1-minute bins).
	_, err := d.Tick(context.Background(), start.Add(10*cfg.BinLength))
	require.NoError(t, err)
	assert.Equal(t, trigger.StateArmed, d.State())

	// An 11th bin with a heavy spike fires and lands in StateFired for
	// exactly this tick.
	tr, err := d.Tick(context.Background(), start.Add(11*cfg.BinLength))
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, trigger.StateFired, d.State())

	// The following tick moves on to StateCooldown (trigger_reset is 5
	// minutes, so it hasn't elapsed yet).
	_, err = d.Tick(context.Background(), start.Add(12*cfg.BinLength))
	require.NoError(t, err)
	assert.Equal(t, trigger.StateCooldown, d.State())

	// Once trigger_reset elapses, the detector re-arms.
	for i := 13; i <= 16; i++ {
		_, err = d.Tick(context.Background(), start.Add(time.Duration(i)*cfg.BinLength))
		require.NoError(t, err)
	}
	assert.Equal(t, trigger.StateArmed, d.State())
}
