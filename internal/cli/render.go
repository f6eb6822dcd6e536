package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"mixdown.dev/internal/audio"
	"mixdown.dev/internal/history"
)

func newRenderCommand(c *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render FILE... -o OUTPUT",
		Short: "Mix sound files into a WAV file faster than real time",
		Long: `Mix one or more sound files through the wavfile device and write the result
to OUTPUT. Mixing is not paced, so a long mix takes a fraction of its playing
time. Device parameters other than the file name still apply, for example
--params "channels=1,bits=8".

Examples:
  mixdown render intro.wav music.ogg -o mix.wav
  mixdown render --repeat --duration 1m loop.wav -o minute.wav`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.runRender,
	}
	addSoundFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "WAV file to write")
	cmd.MarkFlagRequired("output")
	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	limit, _ := cmd.Flags().GetDuration("duration")
	opts, err := c.readSoundOptions(cmd)
	if err != nil {
		return err
	}
	if opts.repeat && limit <= 0 {
		return fmt.Errorf("--repeat needs --duration when rendering")
	}

	sources, paths, err := c.soundLoader().LoadSounds(args)
	if err != nil {
		return err
	}

	params := withDefaultRate(c.deviceParameters(), sources[0].Format().SampleRate)
	params[audio.ParamFile] = output
	device, err := c.openDevice(audio.BackendWavFile, params)
	if err != nil {
		closeSources(sources)
		return fmt.Errorf("failed to open %s: %w", output, err)
	}
	defer device.Close()

	sounds, err := startSounds(device, sources, opts)
	if err != nil {
		return err
	}

	result, driveErr := driveDevice(cmd.Context(), device, driveOptions{
		unpaced: true,
		limit:   limit,
	}, playingDone(device))

	c.recordSounds(history.KindRender, device.Name(), sounds, paths, result.reason != stopInterrupted && driveErr == nil)
	if driveErr != nil {
		return driveErr
	}
	if err := device.Close(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", output, err)
	}

	frames := result.ticks * device.FramesPerBuffer()
	slog.Info("render complete", "output", output, "frames", frames, "reason", result.reason.String())
	fmt.Fprintf(cmd.OutOrStdout(), "rendered %s (%s, %s)\n",
		output, device.Format().String(), formatDuration(device.Format().Duration(frames)))
	return nil
}
