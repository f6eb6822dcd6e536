package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"mixdown.dev/internal/audio"
	"mixdown.dev/internal/history"
)

func newExportCommand(c *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [INPUT] -o OUTPUT",
		Short: "Decode a sound or a generator into a WAV file",
		Long: `Decode INPUT in its own format, with no mixing or conversion, and write it
as a PCM WAV file. With --tone a generator is exported instead; generators are
endless and need --duration.

Examples:
  mixdown export song.mp3 -o song.wav
  mixdown export --duration 10s long.flac -o intro.wav
  mixdown export --tone --freq 880 --duration 2s -o a5.wav`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.runExport,
	}
	cmd.Flags().StringP("output", "o", "", "WAV file to write")
	cmd.Flags().Duration("duration", 0, "Export at most this much audio (0 = whole input)")
	cmd.Flags().Bool("tone", false, "Export a generator instead of a file")
	addToneFlags(cmd, "freq")
	cmd.MarkFlagRequired("output")
	return cmd
}

func (c *CLI) runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	limit, _ := cmd.Flags().GetDuration("duration")
	useTone, _ := cmd.Flags().GetBool("tone")

	var src audio.SampleSource
	var label string
	switch {
	case useTone && len(args) > 0:
		return fmt.Errorf("give either an input file or --tone, not both")
	case useTone:
		if limit <= 0 {
			return fmt.Errorf("--tone needs --duration")
		}
		tone, err := readGenerator(cmd, "freq")
		if err != nil {
			return err
		}
		src, label = tone, toneLabel(tone)
	case len(args) == 1:
		loaded, fullPath, err := c.soundLoader().LoadSound(args[0])
		if err != nil {
			return err
		}
		src, label = loaded, absPath(fullPath)
	default:
		return fmt.Errorf("an input file or --tone is required")
	}
	defer src.Close()

	format := src.Format()
	maxFrames := 0
	if limit > 0 {
		maxFrames = format.Frames(limit)
	}

	out, err := c.fsFactory.Production().Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	frames, err := audio.ExportWAV(out, src, maxFrames)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		c.fsFactory.Production().Remove(output)
		return fmt.Errorf("failed to export %s: %w", label, err)
	}

	duration := format.Duration(frames)
	slog.Info("export complete", "input", label, "output", output, "frames", frames)
	c.initializeHistory().Played(history.Event{
		Kind:      history.KindExport,
		Path:      label,
		Format:    format.String(),
		Frames:    int64(frames),
		Duration:  duration,
		Completed: true,
	})

	fmt.Fprintf(cmd.OutOrStdout(), "exported %s (%s, %s)\n", output, format.String(), formatDuration(duration))
	return nil
}

// formatDuration prints short durations with millisecond precision and longer ones
// as m:ss
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Millisecond).String()
	}
	return formatClock(d)
}
