package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1broseidon/stickyfollow/internal/ipc"
)

var messageOpts struct {
	sticker   string
	timeoutMs int
}

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Show or dismiss message bubbles",
}

var messageShowCmd = &cobra.Command{
	Use:   "show <text>...",
	Short: "Show a message bubble next to a sticker",
	Long: `Show a short text bubble next to a sticker. The bubble follows the
sticker's window until it times out or is dismissed. The message id is
printed on success.`,
	Example: `  stickyfollow message show "build finished"
  stickyfollow message show --sticker todo --timeout-ms -1 "stand-up in 5 minutes"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMessageShow,
}

var messageDismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Close a message bubble",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessageDismiss,
}

func init() {
	messageShowCmd.Flags().StringVarP(&messageOpts.sticker, "sticker", "s", "", "Sticker to attach to (default: last used)")
	messageShowCmd.Flags().IntVarP(&messageOpts.timeoutMs, "timeout-ms", "t", 0, "Lifetime in milliseconds (0: message.timeout_ms, negative: until dismissed)")
	messageCmd.AddCommand(messageShowCmd)
	messageCmd.AddCommand(messageDismissCmd)
	rootCmd.AddCommand(messageCmd)
}

func runMessageShow(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	id, err := ipc.NewClient().ShowMessage(messageOpts.sticker, text, messageOpts.timeoutMs)
	if err != nil {
		return err
	}
	if globalOpts.jsonOutput {
		return printJSON(ipc.MessageData{ID: id})
	}
	fmt.Println(id)
	return nil
}

func runMessageDismiss(cmd *cobra.Command, args []string) error {
	found, err := ipc.NewClient().DismissMessage(args[0])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no message %s", args[0])
	}
	fmt.Printf("dismissed %s\n", args[0])
	return nil
}
