package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/bizfeed/backend/internal/auth"
	"github.com/zfogg/bizfeed/backend/internal/database"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/notifications"
	"github.com/zfogg/bizfeed/backend/internal/repository"
)

var (
	usersLimit      int
	tokenExpiry     time.Duration
	broadcastSender string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List the newest accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openDB(); err != nil {
			return err
		}
		defer database.Close()

		var users []models.User
		err := database.DB.WithContext(cmd.Context()).
			Order("created_at DESC").
			Limit(usersLimit).
			Find(&users).Error
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		if output == "json" {
			return printJSON(users)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tEMAIL\tTYPE\tJOINED")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Username, u.Email, u.AccountType, u.CreatedAt.Format(time.DateOnly))
		}
		return w.Flush()
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Issue an access token for an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openDB(); err != nil {
			return err
		}
		defer database.Close()

		users := repository.NewUserRepository(database.DB)
		user, err := users.GetUserByUsername(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("user %q: %w", args[0], err)
		}

		expiry := cfg.Auth.JWTExpiry
		if tokenExpiry > 0 {
			expiry = tokenExpiry
		}
		resp, err := auth.NewService(users, []byte(cfg.Auth.JWTSecret), expiry).IssueToken(user)
		if err != nil {
			return err
		}

		if output == "json" {
			return printJSON(resp)
		}
		fmt.Println(resp.Token)
		fmt.Fprintf(os.Stderr, "expires %s\n", resp.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

var broadcastCmd = &cobra.Command{
	Use:   "broadcast <message>",
	Short: "Send a system notification to every user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openDB(); err != nil {
			return err
		}
		defer database.Close()

		db := database.DB
		svc := notifications.NewService(db)
		notifier := notifications.NewNotifier(
			notifications.NewDirectDispatcher(svc),
			repository.NewUserRepository(db),
			repository.NewPostRepository(db),
		)
		notifier.Broadcast(cmd.Context(), broadcastSender, args[0])

		fmt.Println("Broadcast sent")
		return nil
	},
}

type stats struct {
	Users         int64 `json:"users"`
	Businesses    int64 `json:"businesses"`
	Posts         int64 `json:"posts"`
	Comments      int64 `json:"comments"`
	Likes         int64 `json:"likes"`
	Messages      int64 `json:"messages"`
	Notifications int64 `json:"notifications"`
	Providers     int64 `json:"providers"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts for the main tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openDB(); err != nil {
			return err
		}
		defer database.Close()

		db := database.DB.WithContext(cmd.Context())
		var s stats
		counts := []struct {
			model any
			where string
			arg   any
			dst   *int64
		}{
			{&models.User{}, "", nil, &s.Users},
			{&models.User{}, "account_type = ?", models.AccountBusiness, &s.Businesses},
			{&models.Post{}, "is_active = ?", true, &s.Posts},
			{&models.Comment{}, "is_active = ?", true, &s.Comments},
			{&models.PostLike{}, "", nil, &s.Likes},
			{&models.Message{}, "", nil, &s.Messages},
			{&models.Notification{}, "", nil, &s.Notifications},
			{&models.Provider{}, "", nil, &s.Providers},
		}
		for _, c := range counts {
			q := db.Model(c.model)
			if c.where != "" {
				q = q.Where(c.where, c.arg)
			}
			if err := q.Count(c.dst).Error; err != nil {
				return fmt.Errorf("count: %w", err)
			}
		}

		if output == "json" {
			return printJSON(s)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "users\t%d\n", s.Users)
		fmt.Fprintf(w, "businesses\t%d\n", s.Businesses)
		fmt.Fprintf(w, "posts\t%d\n", s.Posts)
		fmt.Fprintf(w, "comments\t%d\n", s.Comments)
		fmt.Fprintf(w, "likes\t%d\n", s.Likes)
		fmt.Fprintf(w, "messages\t%d\n", s.Messages)
		fmt.Fprintf(w, "notifications\t%d\n", s.Notifications)
		fmt.Fprintf(w, "providers\t%d\n", s.Providers)
		return w.Flush()
	},
}

func init() {
	usersCmd.Flags().IntVar(&usersLimit, "limit", 20, "Number of users to list")
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "Token lifetime (defaults to JWT_EXPIRY)")
	broadcastCmd.Flags().StringVar(&broadcastSender, "from", "BizFeed", "Sender shown on the notification")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
