package cmd

import (
	"fmt"
	"net/url"
	"os"

	"hn-mirror/internal/hackernews"

	"github.com/spf13/cobra"
)

var debugParseCmd = &cobra.Command{
	Use:   "debug-parse <html_path>",
	Short: "Debug: parse a saved front page and print the extracted items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		base, err := url.Parse(cfg.HackerNews.Endpoint)
		if err != nil {
			return err
		}
		listing, err := hackernews.ParseListing(f, base, hackernews.ParseOptions{
			Hosts:              hackernews.NewHostClassifier(cfg.Enrichment.SitesForUsers),
			CommentURLTemplate: cfg.HackerNews.CommentURLTemplate,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, it := range listing.Items {
			fmt.Fprintf(out, "%2d. %s (%s)\n    %s\n", it.Rank, it.Title, it.Comhead, it.URL)
			if it.Author != nil {
				fmt.Fprintf(out, "    by %s, %s", *it.Author, it.SubmitTime)
			} else {
				fmt.Fprintf(out, "    %s", it.SubmitTime)
			}
			if it.Score != nil {
				fmt.Fprintf(out, ", %d points", *it.Score)
			}
			if it.CommentCount != nil {
				fmt.Fprintf(out, ", %d comments", *it.CommentCount)
			}
			fmt.Fprintln(out)
		}
		for _, perr := range listing.Errors {
			fmt.Fprintf(out, "error: %v\n", perr)
		}
		fmt.Fprintf(out, "items: %d, errors: %d\n", len(listing.Items), len(listing.Errors))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugParseCmd)
}
