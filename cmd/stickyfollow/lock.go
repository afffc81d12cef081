package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/1broseidon/stickyfollow/internal/ipc"
	"github.com/1broseidon/stickyfollow/internal/store"
)

var lockOpts struct {
	window string
}

var lockCmd = &cobra.Command{
	Use:   "lock [sticker]",
	Short: "Attach a sticker to a window",
	Long: `Attach a sticker to a window so it follows it.

Without a sticker the last used one is locked; without --window the active
window is used. The window's process name is remembered so the sticker
re-attaches when the application is restarted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLock,
}

var unlockCmd = &cobra.Command{
	Use:   "unlock [sticker]",
	Short: "Detach a sticker from its window",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUnlock,
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the stickers file in the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ipc.NewClient().Reload(); err != nil {
			return err
		}
		fmt.Println("reloaded")
		return nil
	},
}

func init() {
	lockCmd.Flags().StringVarP(&lockOpts.window, "window", "w", "", "Window handle from \"stickyfollow windows\" (default: active window)")
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(reloadCmd)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runLock(cmd *cobra.Command, args []string) error {
	window, err := parseWindow(lockOpts.window)
	if err != nil {
		return err
	}
	data, err := ipc.NewClient().Lock(firstArg(args), window)
	if err != nil {
		return err
	}
	return printStickerResult("locked", data.Sticker)
}

func runUnlock(cmd *cobra.Command, args []string) error {
	data, err := ipc.NewClient().Unlock(firstArg(args))
	if err != nil {
		return err
	}
	return printStickerResult("unlocked", data.Sticker)
}

func printStickerResult(verb string, st store.Sticker) error {
	if globalOpts.jsonOutput {
		return printJSON(st)
	}
	if st.Follow.TargetProcess != "" && st.Follow.Enabled {
		fmt.Printf("%s %s (process %s)\n", verb, st.Label(), st.Follow.TargetProcess)
		return nil
	}
	fmt.Printf("%s %s\n", verb, st.Label())
	return nil
}
