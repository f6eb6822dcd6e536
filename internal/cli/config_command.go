package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newConfigCommand(c *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), c.config)
		},
	}

	paths := &cobra.Command{
		Use:   "paths",
		Short: "List where configuration and sounds are looked up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Config files:")
			for _, p := range c.configManager.XDG().GetConfigPaths(configFileName) {
				fmt.Fprintf(out, "  %s\n", p)
			}
			fmt.Fprintln(out, "Sound directories:")
			for _, p := range c.configManager.SoundSearchPaths(c.config) {
				fmt.Fprintf(out, "  %s\n", p)
			}
			fmt.Fprintf(out, "History database:\n  %s\n", c.configManager.ResolveHistoryPath(c.config.History))
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the user config directory",
		Long: `Write the default configuration. The file goes to --config when given and to the
user config directory otherwise. An existing file is kept unless --force is set.`,
		Args: cobra.NoArgs,
		// the file may not exist yet, so there is nothing to load
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(c, cmd)
		},
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")

	cmd.AddCommand(show, paths, initCmd)
	return cmd
}

const configFileName = "config.json"

func runConfigInit(c *CLI, cmd *cobra.Command) error {
	force, _ := cmd.Flags().GetBool("force")
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = c.configManager.XDG().GetConfigPaths(configFileName)[0]
	}

	exists, err := afero.Exists(c.fsFactory.Production(), path)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}
	if exists && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}

	if err := c.configManager.SaveToFile(c.configManager.GetDefaultConfig(), path); err != nil {
		return err
	}
	slog.Info("default configuration written", "path", path)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
