package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

// shouldDetachPlayback returns true when play --background should hand the work to a
// detached child process so the caller returns immediately.
//
// Detaching is skipped when:
//   - Already running as a daemon child (--daemon-child flag)
//   - Running under "go test" (detected via os.Args[0])
func shouldDetachPlayback(cmd *cobra.Command) bool {
	if isDaemonChild, _ := cmd.Flags().GetBool("daemon-child"); isDaemonChild {
		slog.Debug("skipping detach: already a daemon child")
		return false
	}

	if strings.HasSuffix(os.Args[0], ".test") || strings.HasSuffix(os.Args[0], ".test.exe") {
		slog.Debug("skipping detach: running under go test")
		return false
	}

	return true
}

// detachedPlayArgs rebuilds the play command line for the child. Persistent flags the
// user set are carried over and --background is replaced by --daemon-child.
func detachedPlayArgs(cmd *cobra.Command, files []string) []string {
	args := []string{"play", "--daemon-child"}

	for _, name := range []string{"config", "volume", "device", "params", "log-level"} {
		if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
			args = append(args, "--"+name, flag.Value.String())
		}
	}
	for _, name := range []string{"repeat", "buffer", "seek", "pan", "duration"} {
		if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
			args = append(args, "--"+name+"="+flag.Value.String())
		}
	}

	args = append(args, "--")
	for _, file := range files {
		args = append(args, absPath(file))
	}
	return args
}

// spawnDetachedPlayer re-invokes the current executable with the play arguments and
// releases it so the calling process can exit
func spawnDetachedPlayer(cmd *cobra.Command, files []string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("cannot determine executable path: %w", err)
	}

	args := detachedPlayArgs(cmd, files)
	child := exec.Command(exe, args...)
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil

	slog.Info("spawning detached player", "exe", exe, "args", args)

	if err := child.Start(); err != nil {
		return 0, fmt.Errorf("cannot start detached player: %w", err)
	}
	pid := child.Process.Pid

	// Release the child so it isn't reaped when we exit.
	if err := child.Process.Release(); err != nil {
		slog.Warn("failed to release detached process", "error", err)
	}
	return pid, nil
}
