package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"mixdown.dev/internal/audio"
)

func newBackendsCommand(c *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List output devices and the autodetect order",
		Long: `List every output device name accepted by --device and the order in which
autodetection tries them on this system. With --probe each autodetect candidate
is opened with the configured parameters and closed again.`,
		Args: cobra.NoArgs,
		RunE: c.runBackends,
	}
	cmd.Flags().Bool("probe", false, "Try to open each autodetect candidate")
	return cmd
}

func (c *CLI) runBackends(cmd *cobra.Command, args []string) error {
	probe, _ := cmd.Flags().GetBool("probe")
	order := c.backendFactory.AutodetectOrder()
	params := c.deviceParameters()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tAUTODETECT\tSTATUS")
	for _, name := range c.backendFactory.GetSupportedBackends() {
		if name == audio.DeviceAutodetect {
			continue
		}
		rank := "-"
		if i := slices.Index(order, name); i >= 0 {
			rank = fmt.Sprint(i + 1)
		}
		status := ""
		if probe && rank != "-" {
			status = c.probeBackend(name, params)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, rank, status)
	}
	return w.Flush()
}

// probeBackend opens and closes one backend and describes the outcome
func (c *CLI) probeBackend(name string, params audio.Parameters) string {
	backend, err := c.backendFactory.CreateBackend(name)
	if err != nil {
		slog.Debug("probe could not create backend", "backend", name, "error", err)
		return "unavailable: " + err.Error()
	}
	if err := backend.Open(params); err != nil {
		slog.Debug("probe could not open backend", "backend", name, "error", err)
		return "failed: " + err.Error()
	}
	format := backend.Format()
	if err := backend.Close(); err != nil {
		slog.Warn("probe could not close backend", "backend", name, "error", err)
	}
	return "ok " + format.String()
}
