package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/1broseidon/stickyfollow/internal/ipc"
	"github.com/1broseidon/stickyfollow/internal/logging"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

// fixed columns before the title: handle, class, process, geometry
const windowsFixedWidth = 64

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List visible top-level windows",
	Long: `List visible top-level windows as seen by the running daemon.

The handle column can be passed to "lock --window" and "suggest-filter --window".`,
	Args: cobra.NoArgs,
	RunE: runWindows,
}

func init() {
	rootCmd.AddCommand(windowsCmd)
}

func runWindows(cmd *cobra.Command, args []string) error {
	data, err := ipc.NewClient().ListWindows()
	if err != nil {
		return err
	}
	if globalOpts.jsonOutput {
		return printJSON(data.Windows)
	}
	titleWidth := 0
	if w := termWidth(); w > 0 {
		titleWidth = max(20, w-windowsFixedWidth)
	}
	return writeWindowTable(os.Stdout, data.Windows, titleWidth)
}

// writeWindowTable prints one row per window. titleWidth 0 leaves titles
// untruncated.
func writeWindowTable(out io.Writer, windows []platform.WindowSnapshot, titleWidth int) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tCLASS\tPROCESS\tGEOMETRY\tTITLE")
	for _, w := range windows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			w.Handle, w.Class, w.Process, geometry(w), windowTitle(w, titleWidth))
	}
	return tw.Flush()
}

func geometry(w platform.WindowSnapshot) string {
	g := fmt.Sprintf("%.0fx%.0f+%.0f+%.0f", w.Bounds.Width, w.Bounds.Height, w.Bounds.X, w.Bounds.Y)
	if w.Minimized {
		g += " (min)"
	}
	return g
}

func windowTitle(w platform.WindowSnapshot, width int) string {
	title := strings.ReplaceAll(w.Title, "\t", " ")
	if width > 0 {
		title = logging.Truncate(title, width)
	}
	return title
}
