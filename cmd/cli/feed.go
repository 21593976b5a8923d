package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/bizfeed/backend/internal/feed"
	"github.com/zfogg/bizfeed/backend/internal/util"
)

var (
	feedCategory string
	feedLimit    int
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the newest posts from a running server",
	// The feed is public and needs no local configuration
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return getFeed()
	},
}

func init() {
	feedCmd.Flags().StringVar(&feedCategory, "category", "", "Only show posts in this category")
	feedCmd.Flags().IntVar(&feedLimit, "limit", 10, "Number of posts to show")
}

type feedResponse struct {
	util.Envelope
	Data []feed.PostView `json:"data"`
}

func getFeed() error {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(feedLimit))
	if feedCategory != "" {
		q.Set("category", feedCategory)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(apiURL + "/api/v1/posts?" + q.Encode())
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result feedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !result.Success {
		if result.Error != "" {
			return fmt.Errorf("API error: %s", result.Error)
		}
		return fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tBUSINESS\tCATEGORY\tLIKES\tRATING\tCAPTION")
	for _, p := range result.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1f (%d)\t%s\n",
			p.Timestamp, p.BusinessName, p.Category, p.Likes, p.Rating, p.RatingCount, util.Preview(p.Description, 40))
	}
	return w.Flush()
}
