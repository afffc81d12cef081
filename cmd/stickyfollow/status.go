package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/1broseidon/stickyfollow/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		return err
	}
	if globalOpts.jsonOutput {
		return printJSON(status)
	}

	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("backend:        %s\n", status.Backend)
	fmt.Printf("started:        %s\n", humanize.Time(status.Started))
	fmt.Printf("stickers:       %d\n", status.Stickers)
	fmt.Printf("instances:      %d\n", status.Instances)
	fmt.Printf("messages:       %d\n", status.Messages)
	fmt.Printf("follow:         %s\n", describeFollow(status.Follow.Active, status.Follow.Interval))
	fmt.Printf("last_tick:      %s\n", describeTick(status.Follow.LastTick, status.Follow.LastTickDuration))
	return nil
}

func describeFollow(active bool, interval time.Duration) string {
	if !active {
		return "idle"
	}
	return fmt.Sprintf("active, every %s", interval)
}

func describeTick(at time.Time, took time.Duration) string {
	if at.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (took %s)", humanize.Time(at), took.Round(time.Microsecond))
}
