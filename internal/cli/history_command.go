package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"mixdown.dev/internal/history"
)

func newHistoryCommand(c *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently played, rendered and exported sounds",
		Long: `Show the playback history recorded by play, tone, render and export.

--since accepts a preset (today, yesterday, last-week, this-week, this-month,
last-month, all-time) or a natural expression such as "3 days ago" or
"last monday".

Examples:
  mixdown history
  mixdown history --since today --kind play
  mixdown history --top --limit 5
  mixdown history --summary --since "2 weeks ago" --json`,
		Args: cobra.NoArgs,
		RunE: c.runHistory,
	}
	cmd.Flags().String("since", "", "Only events after this time")
	cmd.Flags().Int("limit", 20, "Maximum number of rows (0 = no limit)")
	cmd.Flags().String("kind", "", "Filter by kind: play, tone, render or export")
	cmd.Flags().String("backend", "", "Filter by backend name")
	cmd.Flags().String("path", "", "Filter by a substring of the path")
	cmd.Flags().Bool("top", false, "Rank sounds by how often they were used")
	cmd.Flags().Bool("summary", false, "Print totals instead of rows")
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

func (c *CLI) runHistory(cmd *cobra.Command, args []string) error {
	if c.config.History == nil || !c.config.History.Enabled {
		return fmt.Errorf("playback history is disabled in the configuration")
	}

	filter, err := readHistoryFilter(cmd, time.Now())
	if err != nil {
		return err
	}
	top, _ := cmd.Flags().GetBool("top")
	summary, _ := cmd.Flags().GetBool("summary")
	asJSON, _ := cmd.Flags().GetBool("json")
	if top && summary {
		return fmt.Errorf("--top and --summary cannot be combined")
	}

	store, err := c.openHistoryStore()
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	slog.Debug("querying history", "top", top, "summary", summary, "kind", filter.Kind, "limit", filter.Limit)

	out := cmd.OutOrStdout()
	switch {
	case summary:
		s, err := store.GetSummary(filter)
		if err != nil {
			return fmt.Errorf("failed to summarize history: %w", err)
		}
		if asJSON {
			return writeJSON(out, s)
		}
		return writeSummary(out, s)
	case top:
		usage, err := store.GetTopSounds(filter)
		if err != nil {
			return fmt.Errorf("failed to rank sounds: %w", err)
		}
		if asJSON {
			return writeJSON(out, usage)
		}
		return writeTopSounds(out, usage)
	default:
		events, err := store.GetRecentEvents(filter)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}
		if asJSON {
			return writeJSON(out, events)
		}
		return writeEvents(out, events)
	}
}

func readHistoryFilter(cmd *cobra.Command, now time.Time) (history.QueryFilter, error) {
	since, _ := cmd.Flags().GetString("since")
	limit, _ := cmd.Flags().GetInt("limit")
	kind, _ := cmd.Flags().GetString("kind")
	backend, _ := cmd.Flags().GetString("backend")
	path, _ := cmd.Flags().GetString("path")

	if limit < 0 {
		return history.QueryFilter{}, fmt.Errorf("limit cannot be negative")
	}
	switch history.Kind(kind) {
	case "", history.KindPlay, history.KindTone, history.KindRender, history.KindExport:
	default:
		return history.QueryFilter{}, fmt.Errorf("unknown kind %q", kind)
	}

	filter := history.QueryFilter{
		Kind:    history.Kind(kind),
		Backend: backend,
		Path:    path,
		Limit:   limit,
	}
	if since != "" {
		if err := filter.ApplySince(since, now); err != nil {
			return history.QueryFilter{}, err
		}
	}
	return filter, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeEvents(w io.Writer, events []history.Event) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "no history yet")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKIND\tBACKEND\tLENGTH\tDONE\tPATH")
	for _, e := range events {
		backend := e.Backend
		if backend == "" {
			backend = "-"
		}
		done := "yes"
		if !e.Completed {
			done = "no"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Kind, backend, formatDuration(e.Duration), done, e.Path)
	}
	return tw.Flush()
}

func writeTopSounds(w io.Writer, usage []history.SoundUsage) error {
	if len(usage) == 0 {
		fmt.Fprintln(w, "no history yet")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOUNT\tTOTAL\tLAST\tPATH")
	for i, u := range usage {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n",
			i+1, u.PlayCount, formatDuration(u.TotalDuration), u.LastPlayed.Local().Format("2006-01-02 15:04"), u.Path)
	}
	return tw.Flush()
}

func writeSummary(w io.Writer, s *history.Summary) error {
	fmt.Fprintf(w, "Events:     %d (%d completed)\n", s.TotalEvents, s.Completed)
	fmt.Fprintf(w, "Sounds:     %d\n", s.UniquePaths)
	fmt.Fprintf(w, "Total time: %s\n", formatDuration(s.TotalDuration))
	if len(s.Backends) == 0 {
		return nil
	}

	names := make([]string, 0, len(s.Backends))
	for name := range s.Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Backends:")
	for _, name := range names {
		label := name
		if label == "" {
			label = "(export)"
		}
		fmt.Fprintf(w, "  %-16s %d\n", label, s.Backends[name])
	}
	return nil
}
