package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

var postsLimit int

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List recent posts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ps, err := newClient().Posts(cmd.Context(), postsLimit)
		if err != nil {
			return err
		}
		t := newTable("ID", "Author", "Media", "Title", "Comments", "Audio")
		for _, p := range ps {
			audio := 0
			for _, c := range p.Comments {
				if c.HasAudio() {
					audio++
				}
			}
			t.AddRow(p.ID.String(), p.Author.Name, string(p.MediaType), p.Title(),
				strconv.Itoa(max(len(p.Comments)-1, 0)), strconv.Itoa(audio))
		}
		return printTable(cmd.OutOrStdout(), t)
	},
}

func init() {
	postsCmd.Flags().IntVar(&postsLimit, "limit", 20, "maximum posts to list")
}
