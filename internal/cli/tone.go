package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"mixdown.dev/internal/audio"
	"mixdown.dev/internal/history"
)

func addToneFlags(cmd *cobra.Command, freqFlag string) {
	cmd.Flags().Float64(freqFlag, 440, "Tone frequency in Hz (ignored by noise)")
	cmd.Flags().StringP("wave", "w", "sine", "Waveform: sine, square, white or pink")
}

// readGenerator builds the generator selected by the tone flags
func readGenerator(cmd *cobra.Command, freqFlag string) (*audio.ToneSource, error) {
	freq, _ := cmd.Flags().GetFloat64(freqFlag)
	waveName, _ := cmd.Flags().GetString("wave")

	wave, err := audio.ParseWaveform(waveName)
	if err != nil {
		return nil, err
	}
	if !(freq >= 0 && freq <= audio.ToneRate/2) {
		return nil, fmt.Errorf("frequency must be between 0 and %d Hz, got %g", audio.ToneRate/2, freq)
	}
	return audio.NewGenerator(wave, freq), nil
}

// toneLabel names a generated source in history and progress output
func toneLabel(tone *audio.ToneSource) string {
	if tone.Waveform() == audio.WaveWhiteNoise || tone.Waveform() == audio.WavePinkNoise {
		return "tone:" + tone.Waveform().String()
	}
	return fmt.Sprintf("tone:%s:%gHz", tone.Waveform(), tone.Frequency())
}

func newToneCommand(c *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Play a generated tone or noise",
		Long: `Play a sine, square, white noise or pink noise generator.

Generators run at 44100 Hz, so the device is opened at that rate unless another
one is given with --params, which then fails.

Examples:
  mixdown tone
  mixdown tone --freq 1000 --duration 500ms
  mixdown tone --wave pink --pan -0.5`,
		Args: cobra.NoArgs,
		RunE: c.runTone,
	}
	addToneFlags(cmd, "freq")
	cmd.Flags().Duration("duration", time.Second, "How long to play (0 = until interrupted)")
	cmd.Flags().Float32("pan", 0, "Balance from -1 (left) to 1 (right)")
	cmd.Flags().Float32("level", 1, "Stream volume from 0 to 1")
	return cmd
}

func (c *CLI) runTone(cmd *cobra.Command, args []string) error {
	tone, err := readGenerator(cmd, "freq")
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetDuration("duration")
	pan, _ := cmd.Flags().GetFloat32("pan")
	level, _ := cmd.Flags().GetFloat32("level")
	if !(pan >= -1 && pan <= 1) {
		return fmt.Errorf("pan must be between -1 and 1, got %g", pan)
	}
	if !(level >= 0 && level <= 1) {
		return fmt.Errorf("level must be between 0 and 1, got %g", level)
	}

	label := toneLabel(tone)
	slog.Debug("running tone command", "tone", label, "duration", limit)

	params := withDefaultRate(c.deviceParameters(), audio.ToneRate)
	device, err := c.openDevice(c.config.OutputDevice, params)
	if err != nil {
		tone.Close()
		return fmt.Errorf("failed to open output device: %w", err)
	}
	defer device.Close()

	stream, err := device.OpenStream(tone)
	if err != nil {
		return fmt.Errorf("failed to open tone: %w", err)
	}
	stream.SetPan(pan)
	stream.SetVolume(level)
	stream.Play()

	progress := newProgressLine(cmd.OutOrStdout(), c.isInteractive(cmd.OutOrStdout()))
	result, driveErr := driveDevice(cmd.Context(), device, driveOptions{
		limit:    limit,
		progress: func(elapsed time.Duration) { progress.Update(label, elapsed, limit) },
	}, playingDone(device))
	progress.Done()

	format := stream.Format()
	frames := stream.FramesPlayed()
	c.initializeHistory().Played(history.Event{
		Kind:      history.KindTone,
		Path:      label,
		Backend:   device.Name(),
		Format:    format.String(),
		Frames:    frames,
		Duration:  format.Duration(int(frames)),
		Completed: result.reason == stopLimit && driveErr == nil,
	})
	return driveErr
}
