package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/1broseidon/stickyfollow/internal/ipc"
)

var suggestFilterOpts struct {
	window string
	kind   string
}

var suggestFilterCmd = &cobra.Command{
	Use:   "suggest-filter",
	Short: "Suggest a batch filter that matches a window",
	Long: `Print a batch follow filter pattern that matches a window.

The output can be passed to "stickers follow --batch --filter-kind KIND --filter PATTERN".`,
	Args: cobra.NoArgs,
	RunE: runSuggestFilter,
}

func init() {
	suggestFilterCmd.Flags().StringVarP(&suggestFilterOpts.window, "window", "w", "", "Window handle (default: active window)")
	suggestFilterCmd.Flags().StringVarP(&suggestFilterOpts.kind, "kind", "k", "window-class", "Filter kind: window-class, process-name or title-regex")
	rootCmd.AddCommand(suggestFilterCmd)
}

func runSuggestFilter(cmd *cobra.Command, args []string) error {
	window, err := parseWindow(suggestFilterOpts.window)
	if err != nil {
		return err
	}
	data, err := ipc.NewClient().SuggestFilter(window, suggestFilterOpts.kind)
	if err != nil {
		return err
	}
	if globalOpts.jsonOutput {
		return printJSON(data)
	}
	fmt.Printf("window:  %s %q\n", data.Window.Handle, data.Window.Title)
	fmt.Printf("kind:    %s\n", data.Kind)
	fmt.Printf("pattern: %s\n", data.Pattern)
	return nil
}
