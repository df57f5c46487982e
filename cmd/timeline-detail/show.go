package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"timeline/internal/core/opqueue"
)

var (
	showFlags screenFlags
	playRow   int
)

var showCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Scroll through a post's comments and load their audio",
	Long: `show binds the post's rows to the cell pool one window at a time,
waits for every started fetch, and prints which cell shows which row.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openScreen(ctx, newClient(), args[0], showFlags)
		if err != nil {
			return err
		}
		defer s.stop()
		out := cmd.OutOrStdout()

		n, err := s.rowCount(ctx)
		if err != nil {
			return err
		}
		title, err := s.title(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%d rows)\n\n", title, n)

		for first := 0; first < n; first += max(showFlags.window, 1) {
			rows, err := s.scroll(ctx, first)
			if err != nil {
				return err
			}
			if err := printRows(out, rows); err != nil {
				return err
			}
			fmt.Fprintln(out)
			if err := s.printSlots(ctx, out); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}

		if playRow >= 0 {
			if _, err := s.scroll(ctx, playRow); err != nil {
				return err
			}
			played := false
			if err := s.main.Sync(ctx, func(mc *opqueue.MainContext) { played = s.d.PlayRow(mc, playRow) }); err != nil {
				return err
			}
			if !played {
				return fmt.Errorf("row %d has no playable audio", playRow)
			}
			fmt.Fprintf(out, "played row %d: %s\n\n", playRow, s.player.Last())
		}
		return s.printStats(out)
	},
}

func init() {
	showFlags.register(showCmd)
	showCmd.Flags().IntVar(&playRow, "play", -1, "row to play after scrolling")
}
