package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mixdown.dev/internal/audio"
)

// maxDegraded is how long playback waits for a lost device to come back
var maxDegraded = 5 * time.Second

type stopReason int

const (
	stopFinished stopReason = iota
	stopLimit
	stopInterrupted
)

func (r stopReason) String() string {
	switch r {
	case stopLimit:
		return "limit"
	case stopInterrupted:
		return "interrupted"
	default:
		return "finished"
	}
}

// driveOptions controls driveDevice
type driveOptions struct {
	// unpaced ticks as fast as possible instead of once per buffer period
	unpaced bool
	// limit stops playback after this much audio; zero plays until done
	limit time.Duration
	// progress is called after every tick with the audio time produced so far
	progress func(elapsed time.Duration)
}

type driveResult struct {
	reason  stopReason
	ticks   int
	elapsed time.Duration
}

// driveDevice keeps the device producing audio until done reports true, the limit is
// reached or ctx is cancelled. Polling backends are ticked here; threaded backends
// tick themselves and are only watched. Cancellation is a normal stop.
func driveDevice(ctx context.Context, device *audio.Device, opts driveOptions, done func() bool) (driveResult, error) {
	period := device.Format().Duration(device.FramesPerBuffer())
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	polling := !device.Threaded()

	var ticker *time.Ticker
	if !opts.unpaced {
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	slog.Debug("driving device",
		"backend", device.Name(),
		"period", period,
		"polling", polling,
		"unpaced", opts.unpaced,
		"limit", opts.limit)

	var result driveResult
	var degradedSince time.Time
	start := time.Now()

	for {
		if done() {
			result.reason = stopFinished
			break
		}
		if opts.limit > 0 && result.elapsed >= opts.limit {
			result.reason = stopLimit
			break
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				result.reason = stopInterrupted
				slog.Info("playback interrupted")
				return result, nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			result.reason = stopInterrupted
			return result, nil
		}

		if polling {
			device.Update()
		}
		result.ticks++
		if opts.unpaced {
			result.elapsed = time.Duration(result.ticks) * period
		} else {
			result.elapsed = time.Since(start)
		}

		if device.Degraded() {
			if degradedSince.IsZero() {
				degradedSince = time.Now()
				slog.Warn("audio output degraded, waiting for recovery", "backend", device.Name(), "error", device.Err())
			} else if time.Since(degradedSince) > maxDegraded {
				return result, fmt.Errorf("audio output lost: %w", device.Err())
			}
		} else if !degradedSince.IsZero() {
			slog.Info("audio output back", "backend", device.Name(), "after", time.Since(degradedSince))
			degradedSince = time.Time{}
		}

		if opts.progress != nil {
			opts.progress(result.elapsed)
		}
	}

	if !opts.unpaced {
		drain(ctx, device, period)
	}
	slog.Debug("playback stopped", "reason", result.reason.String(), "ticks", result.ticks, "elapsed", result.elapsed)
	return result, nil
}

// drain lets the audio already handed to the backend reach the speakers before the
// device is closed
func drain(ctx context.Context, device *audio.Device, period time.Duration) {
	for i := 0; i < audio.DefaultQueueDepth; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(period):
		}
		if !device.Threaded() {
			device.Update()
		}
	}
}

// playingDone reports true once no stream on device is playing
func playingDone(device *audio.Device) func() bool {
	return func() bool { return device.PlayingStreams() == 0 }
}

// withDefaultRate fills in the rate parameter from a source so that the device
// matches it when the user did not pick one
func withDefaultRate(params audio.Parameters, rate int) audio.Parameters {
	out := audio.Parameters{}
	for k, v := range params {
		out[k] = v
	}
	if _, ok := out[audio.ParamRate]; !ok && rate > 0 {
		out[audio.ParamRate] = fmt.Sprint(rate)
	}
	return out
}
