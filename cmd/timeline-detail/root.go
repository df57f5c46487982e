package main

import (
	"time"

	"github.com/spf13/cobra"

	"timeline/internal/platform/config"
	"timeline/internal/services/posts/client"
)

// flag defaults come from TIMELINE_DETAIL_*
var env = config.New().Prefix("TIMELINE_DETAIL_")

var (
	apiURL     string
	reqTimeout time.Duration
	retries    int
)

var rootCmd = &cobra.Command{
	Use:   "timeline-detail",
	Short: "Headless post detail screen for the timeline API",
	Long: `timeline-detail opens a post the way the app's detail screen does:
a fixed pool of audio cells is bound to comment rows while scrolling,
recordings are fetched in the background, cached, and shown only on the
cell that still displays their row.

Examples:
  # List recent posts
  timeline-detail posts

  # Scroll a post two rows at a time with three cells, then play row 1
  timeline-detail show 7f1c... --pool 3 --window 2 --play 1

  # Add a text comment
  timeline-detail comment 7f1c... "nice pier" --author ana`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", env.MayString("API_URL", "http://localhost:8080"), "timeline API base URL")
	rootCmd.PersistentFlags().DurationVar(&reqTimeout, "timeout", env.MayDuration("TIMEOUT", 10*time.Second), "per request timeout")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", env.MayInt("RETRIES", 3), "retries for idempotent requests")

	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func newClient() *client.Client {
	return client.New(client.Options{
		BaseURL:    apiURL,
		UserAgent:  "timeline-detail",
		Timeout:    reqTimeout,
		MaxRetries: retries,
	})
}
