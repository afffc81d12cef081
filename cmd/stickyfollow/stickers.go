package main

import (
	"fmt"
	"image"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/daemon"
	"github.com/1broseidon/stickyfollow/internal/follow"
	"github.com/1broseidon/stickyfollow/internal/ipc"
	"github.com/1broseidon/stickyfollow/internal/store"
)

var stickersCmd = &cobra.Command{
	Use:   "stickers",
	Short: "Manage stickers",
	Long: `Add, list, remove and configure stickers.

These commands edit the stickers file directly. A running daemon with
watch_stickers enabled picks the changes up immediately; otherwise send it
SIGHUP or run "stickyfollow reload".`,
}

var stickersAddOpts struct {
	name   string
	image  string
	x, y   int
	width  float64
	height float64
	hidden bool
}

var stickersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a sticker",
	Example: `  stickyfollow stickers add --name todo --image ~/Pictures/todo.png --follow --process code
  stickyfollow stickers add --name fox --image fox.webp --follow --batch --filter-kind process-name --filter firefox --anchor top-right`,
	Args: cobra.NoArgs,
	RunE: runStickersAdd,
}

var stickersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stickers",
	Args:    cobra.NoArgs,
	RunE:    runStickersList,
}

var stickersRemoveCmd = &cobra.Command{
	Use:     "remove <sticker>",
	Aliases: []string{"rm"},
	Short:   "Remove a sticker",
	Long:    "Remove a sticker by id, unique id prefix or name.",
	Args:    cobra.ExactArgs(1),
	RunE:    runStickersRemove,
}

var stickersFollowCmd = &cobra.Command{
	Use:   "follow <sticker>",
	Short: "Change how a sticker follows windows",
	Long: `Change the follow settings of a sticker. Only the flags given are
changed.`,
	Example: `  stickyfollow stickers follow todo --anchor bottom-right --offset-mode ratio --offset-x -0.1 --offset-y -0.1
  stickyfollow stickers follow fox --follow=false`,
	Args: cobra.ExactArgs(1),
	RunE: runStickersFollow,
}

func init() {
	stickersAddCmd.Flags().StringVar(&stickersAddOpts.name, "name", "", "Display name")
	stickersAddCmd.Flags().StringVar(&stickersAddOpts.image, "image", "", "Image file (PNG, JPEG, GIF or WebP)")
	stickersAddCmd.Flags().IntVar(&stickersAddOpts.x, "x", 100, "Initial X position of the sticker")
	stickersAddCmd.Flags().IntVar(&stickersAddOpts.y, "y", 100, "Initial Y position of the sticker")
	stickersAddCmd.Flags().Float64Var(&stickersAddOpts.width, "width", 0, "Width in logical pixels (default: image width)")
	stickersAddCmd.Flags().Float64Var(&stickersAddOpts.height, "height", 0, "Height in logical pixels (default: image height)")
	stickersAddCmd.Flags().BoolVar(&stickersAddOpts.hidden, "hidden", false, "Add the sticker without showing it")
	addFollowFlags(stickersAddCmd)
	addFollowFlags(stickersFollowCmd)

	stickersCmd.AddCommand(stickersAddCmd)
	stickersCmd.AddCommand(stickersListCmd)
	stickersCmd.AddCommand(stickersRemoveCmd)
	stickersCmd.AddCommand(stickersFollowCmd)
	rootCmd.AddCommand(stickersCmd)
}

// addFollowFlags registers the flags applyFollowFlags reads. Values are
// read back through cmd.Flags() so add and follow can share them.
func addFollowFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("follow", false, "Follow other windows")
	f.Bool("batch", false, "Attach a copy to every window matching the filter")
	f.String("filter-kind", "", "Batch filter: window-class, process-name or title-regex")
	f.String("filter", "", "Batch filter pattern")
	f.String("process", "", "Process name to re-attach to in single mode")
	f.String("anchor", "", "Corner of the target: top-left, top-right, bottom-left or bottom-right")
	f.String("offset-mode", "", "Offset unit: pixels or ratio")
	f.Float64("offset-x", 0, "Horizontal offset from the anchor")
	f.Float64("offset-y", 0, "Vertical offset from the anchor")
	f.Int("poll-ms", 0, "Poll interval in milliseconds (0 uses default_poll_interval_ms)")
	f.Bool("hide-when-minimized", false, "Hide the sticker while its target is minimized")
}

// applyFollowFlags copies every follow flag the user set into fc.
func applyFollowFlags(cmd *cobra.Command, fc *follow.Config) error {
	f := cmd.Flags()
	var err error
	if f.Changed("follow") {
		if fc.Enabled, err = f.GetBool("follow"); err != nil {
			return err
		}
	}
	if f.Changed("batch") {
		if fc.Batch, err = f.GetBool("batch"); err != nil {
			return err
		}
	}
	if f.Changed("filter-kind") {
		s, _ := f.GetString("filter-kind")
		if fc.FilterKind, err = follow.ParseFilterKind(s); err != nil {
			return err
		}
	}
	if f.Changed("filter") {
		fc.FilterPattern, _ = f.GetString("filter")
	}
	if f.Changed("process") {
		fc.TargetProcess, _ = f.GetString("process")
	}
	if f.Changed("anchor") {
		s, _ := f.GetString("anchor")
		if fc.Anchor, err = anchor.ParseCorner(s); err != nil {
			return err
		}
	}
	if f.Changed("offset-mode") {
		s, _ := f.GetString("offset-mode")
		if fc.OffsetMode, err = anchor.ParseOffsetMode(s); err != nil {
			return err
		}
	}
	if f.Changed("offset-x") {
		fc.Offset.X, _ = f.GetFloat64("offset-x")
	}
	if f.Changed("offset-y") {
		fc.Offset.Y, _ = f.GetFloat64("offset-y")
	}
	if f.Changed("poll-ms") {
		ms, _ := f.GetInt("poll-ms")
		if ms < 0 {
			return fmt.Errorf("--poll-ms must be >= 0")
		}
		fc.PollIntervalMs = ms
	}
	if f.Changed("hide-when-minimized") {
		fc.HideWhenMinimized, _ = f.GetBool("hide-when-minimized")
	}
	return nil
}

// newSticker builds a sticker from the add flags.
func newSticker(cmd *cobra.Command, hideWhenMinimized bool) (store.Sticker, error) {
	opts := stickersAddOpts
	if opts.width < 0 || opts.height < 0 {
		return store.Sticker{}, fmt.Errorf("--width and --height must be >= 0")
	}
	st := store.Sticker{
		Name:  opts.name,
		Image: opts.image,
		Template: follow.Template{
			Visible:  !opts.hidden,
			Position: image.Point{X: opts.x, Y: opts.y},
			Size:     anchor.Size{Width: opts.width, Height: opts.height},
		},
	}
	st.Follow.HideWhenMinimized = hideWhenMinimized
	if err := applyFollowFlags(cmd, &st.Follow); err != nil {
		return store.Sticker{}, err
	}
	return st, nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.StickersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open stickers file: %w", err)
	}
	return st, nil
}

func runStickersAdd(cmd *cobra.Command, args []string) error {
	sticker, err := newSticker(cmd, cfg.HideWhenMinimized)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	added, err := st.Add(sticker)
	if err != nil {
		return err
	}
	if globalOpts.jsonOutput {
		return printJSON(added)
	}
	fmt.Printf("added %s (%s)\n", added.ID, added.Label())
	return nil
}

func runStickersList(cmd *cobra.Command, args []string) error {
	states, live := stickerStates()
	if globalOpts.jsonOutput {
		return printJSON(states)
	}
	return writeStickerTable(os.Stdout, states, live)
}

// stickerStates asks the daemon for live state and falls back to the
// stickers file when it is not running.
func stickerStates() ([]daemon.StickerState, bool) {
	if data, err := ipc.NewClient().ListStickers(); err == nil {
		return data.Stickers, true
	}
	st, err := store.Open(cfg.StickersFile)
	if err != nil {
		logger.Warn("failed to open stickers file", "error", err)
		return nil, false
	}
	defer st.Close()
	var states []daemon.StickerState
	for _, s := range st.All() {
		states = append(states, daemon.StickerState{Sticker: s})
	}
	return states, false
}

func writeStickerTable(out io.Writer, states []daemon.StickerState, live bool) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "ID\tNAME\tMODE\tMATCH\tANCHOR\tVISIBLE"
	if live {
		header += "\tSTATE"
	}
	fmt.Fprintln(tw, header)
	for _, s := range states {
		row := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%v",
			s.ID, s.Name, followMode(s.Follow), followMatch(s.Follow), s.Follow.Anchor, s.Visible)
		if live {
			row += "\t" + liveState(s)
		}
		fmt.Fprintln(tw, row)
	}
	return tw.Flush()
}

func followMode(fc follow.Config) string {
	switch {
	case !fc.Enabled:
		return "off"
	case fc.Batch:
		return "batch"
	default:
		return "single"
	}
}

func followMatch(fc follow.Config) string {
	if fc.Batch {
		return fmt.Sprintf("%s=%s", fc.FilterKind, fc.FilterPattern)
	}
	if fc.TargetProcess != "" {
		return "process=" + fc.TargetProcess
	}
	return "-"
}

func liveState(s daemon.StickerState) string {
	switch {
	case !s.Active:
		return "idle"
	case s.Target != 0:
		return "on " + s.Target.String()
	default:
		return fmt.Sprintf("%d attached", len(s.Instances))
	}
}

func runStickersRemove(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sticker, err := st.Lookup(args[0])
	if err != nil {
		return err
	}
	if err := st.Delete(sticker.ID); err != nil {
		return err
	}
	fmt.Printf("removed %s (%s)\n", sticker.ID, sticker.Label())
	return nil
}

func runStickersFollow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sticker, err := st.Lookup(args[0])
	if err != nil {
		return err
	}
	if err := applyFollowFlags(cmd, &sticker.Follow); err != nil {
		return err
	}
	if err := st.Update(sticker); err != nil {
		return err
	}
	if globalOpts.jsonOutput {
		return printJSON(sticker)
	}
	fmt.Printf("%s: %s %s, anchor %s, offset %g,%g (%s)\n",
		sticker.Label(), followMode(sticker.Follow), followMatch(sticker.Follow),
		sticker.Follow.Anchor, sticker.Follow.Offset.X, sticker.Follow.Offset.Y, sticker.Follow.OffsetMode)
	return nil
}
