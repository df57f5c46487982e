package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"timeline/internal/core/opqueue"
)

var (
	commentFlags  screenFlags
	commentAuthor string

	recordFlags       screenFlags
	recordAuthor      string
	recordContentType string
)

var commentCmd = &cobra.Command{
	Use:   "comment <post-id> <text>",
	Short: "Add a text comment from the detail screen",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openScreen(ctx, newClient(), args[0], commentFlags)
		if err != nil {
			return err
		}
		defer s.stop()

		c, err := s.d.AddTextComment(ctx, commentAuthor, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "comment %s added\n\n", c.ID)
		return showTail(ctx, cmd, s)
	},
}

var recordCmd = &cobra.Command{
	Use:   "record <post-id> <file>",
	Short: "Upload a recording as an audio comment",
	Long: `record uploads the file, waits for the screen to reload on the
posted notification, and loads the new row's audio back from the API.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		ct := recordContentType
		if ct == "" {
			ct = mime.TypeByExtension(filepath.Ext(args[1]))
		}
		if ct == "" {
			ct = "audio/mp4"
		}

		s, err := openScreen(ctx, newClient(), args[0], recordFlags)
		if err != nil {
			return err
		}
		defer s.stop()

		c, err := s.d.AddAudioComment(ctx, recordAuthor, ct, data)
		if err != nil {
			return err
		}
		if err := waitReload(ctx, s); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "audio comment %s at %s\n\n", c.ID, c.AudioURL)
		return showTail(ctx, cmd, s)
	},
}

func init() {
	commentFlags.register(commentCmd)
	commentCmd.Flags().StringVar(&commentAuthor, "author", env.MayString("AUTHOR", "anonymous"), "comment author")

	recordFlags.register(recordCmd)
	recordCmd.Flags().StringVar(&recordAuthor, "author", env.MayString("AUTHOR", "anonymous"), "comment author")
	recordCmd.Flags().StringVar(&recordContentType, "content-type", "", "audio content type, guessed from the extension when empty")
}

// waitReload polls until the posted notification has reloaded the table
func waitReload(ctx context.Context, s *screen) error {
	ctx, cancel := context.WithTimeout(ctx, s.f.settle)
	defer cancel()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		reloads := 0
		if err := s.main.Sync(ctx, func(mc *opqueue.MainContext) { reloads = s.d.Reloads(mc) }); err != nil {
			return err
		}
		if reloads > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for reload: %w", ctx.Err())
		case <-tick.C:
		}
	}
}

// showTail scrolls to the last window and prints it
func showTail(ctx context.Context, cmd *cobra.Command, s *screen) error {
	n, err := s.rowCount(ctx)
	if err != nil {
		return err
	}
	rows, err := s.scroll(ctx, max(n-s.f.window, 0))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := printRows(out, rows); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return s.printSlots(ctx, out)
}
