package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/podlens/podlens/internal/api"
	"github.com/podlens/podlens/internal/catalog"
	"github.com/podlens/podlens/internal/config"
	"github.com/podlens/podlens/internal/history"
	"github.com/podlens/podlens/internal/session"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-shot question across all episodes",
	Long: `Ask a one-shot question across all episodes.

Examples:
  podlens ask "How did Airbnb survive the 2008 downturn?"
  podlens ask --limit 3 "What is positioning?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")

		sess, _, _, err := newSession()
		if err != nil {
			return err
		}
		if limit > 0 {
			sess.SetSourceLimit(limit)
		}

		resp, err := sess.Submit(cmd.Context(), query)
		if err != nil {
			printError("%s", api.UserMessage(err))
			return err
		}

		fmt.Println(renderAnswer(resp))
		fmt.Println(counterLine(sess))
		return archiveSession(sess)
	},
}

func init() {
	askCmd.Flags().Int("limit", 0, "maximum number of sources (default from config)")
}

// --- compare ---

var compareCmd = &cobra.Command{
	Use:   "compare <guest1> <guest2> <topic>",
	Short: "Compare two guests' perspectives on a topic",
	Long: `Compare two guests' perspectives on a topic.

Example:
  podlens compare "Brian Chesky" "Elena Verna" growth`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		guest1, guest2 := args[0], args[1]
		topic := strings.Join(args[2:], " ")

		sess, _, _, err := newSession()
		if err != nil {
			return err
		}

		resp, err := sess.CompareGuests(cmd.Context(), guest1, guest2, topic)
		if err != nil {
			printError("%s", api.UserMessage(err))
			return err
		}

		fmt.Println(renderCompare(resp))
		fmt.Println(counterLine(sess))
		return nil
	},
}

// --- new ---

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Clear the server-side conversation context",
	Long: `Clear the server-side conversation context, so the next ask starts
a fresh conversation instead of continuing the previous one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newLensClient()
		if err != nil {
			return err
		}

		if err := client.ClearConversation(cmd.Context()); err != nil {
			printError("%s", api.UserMessage(err))
			return err
		}

		printSuccess("Conversation cleared.")
		return nil
	},
}

// --- guests ---

var guestsCmd = &cobra.Command{
	Use:   "guests",
	Short: "List all indexed podcast guests",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newLensClient()
		if err != nil {
			return err
		}

		guests, err := catalog.New(client).Guests(cmd.Context())
		if err != nil {
			printError("%s", api.UserMessage(err))
			return err
		}

		if len(guests) == 0 {
			fmt.Println("No guests indexed.")
			return nil
		}
		for _, g := range guests {
			if g.ChunkCount > 0 {
				fmt.Printf("  %s %s\n", colorize(colorBold, g.Name),
					colorize(colorDim, fmt.Sprintf("(%d chunks)", g.ChunkCount)))
			} else {
				fmt.Printf("  %s\n", colorize(colorBold, g.Name))
			}
		}
		return nil
	},
}

// --- guides ---

var guidesCmd = &cobra.Command{
	Use:   "guides",
	Short: "Browse episode action guides",
	RunE: func(cmd *cobra.Command, args []string) error {
		sortBy, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")

		client, _, err := newLensClient()
		if err != nil {
			return err
		}

		guides, err := catalog.New(client).Guides(cmd.Context(), sortBy, limit)
		if err != nil {
			printError("%s", api.UserMessage(err))
			return err
		}

		if len(guides) == 0 {
			fmt.Println("No guides available.")
			return nil
		}
		fmt.Print(renderGuideList(guides))
		return nil
	},
}

var guidesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one episode guide in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid guide id %q", args[0])
		}

		client, _, err := newLensClient()
		if err != nil {
			return err
		}

		guide, err := catalog.New(client).GuideDetail(cmd.Context(), id)
		if err != nil {
			printError("%s", api.UserMessage(err))
			return err
		}

		fmt.Print(renderGuideDetail(guide))
		return nil
	},
}

func init() {
	guidesCmd.Flags().String("sort", catalog.DefaultGuideSort, "sort order: views or recent")
	guidesCmd.Flags().Int("limit", catalog.DefaultGuideLimit, "maximum number of guides")
	guidesCmd.AddCommand(guidesShowCmd)
}

// --- trending ---

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show trending questions from recent searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		limit, _ := cmd.Flags().GetInt("limit")

		client, _, err := newLensClient()
		if err != nil {
			return err
		}

		items, err := catalog.New(client).Trending(cmd.Context(), days, limit)
		if err != nil {
			printError("%s", api.UserMessage(err))
			return err
		}

		if len(items) == 0 {
			fmt.Println("No trending questions yet.")
			return nil
		}
		fmt.Print(renderTrending(items))
		return nil
	},
}

func init() {
	trendingCmd.Flags().Int("days", catalog.DefaultTrendingDays, "lookback window in days")
	trendingCmd.Flags().Int("limit", catalog.DefaultTrendingLimit, "maximum number of questions")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := history.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()

		convos, err := store.ListConversations(limit)
		if err != nil {
			return err
		}
		if len(convos) == 0 {
			fmt.Println("No archived conversations.")
			return nil
		}
		for _, c := range convos {
			fmt.Printf("%s  %s  %d messages\n",
				colorize(colorCyan, c.ID[:8]),
				c.ArchivedAt.Local().Format("2006-01-02 15:04"),
				c.MessageCount,
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Replay one archived conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := history.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()

		id, err := resolveConversationID(store, args[0])
		if err != nil {
			return err
		}

		messages, err := store.Messages(id)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			fmt.Println("No messages in that conversation.")
			return nil
		}
		for _, msg := range messages {
			if msg.Role == "user" {
				fmt.Println(questionStyle.Render("You: " + msg.Content))
			} else {
				fmt.Println(answerStyle.Render(msg.Content))
				if len(msg.Sources) > 0 {
					fmt.Print(renderSources(msg.Sources))
				}
			}
		}
		return nil
	},
}

// resolveConversationID expands a short ID prefix to the full archived ID.
func resolveConversationID(store *history.Store, prefix string) (string, error) {
	convos, err := store.ListConversations(500)
	if err != nil {
		return "", err
	}
	var match string
	for _, c := range convos {
		if strings.HasPrefix(c.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("conversation id %q is ambiguous", prefix)
			}
			match = c.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no conversation matching %q", prefix)
	}
	return match, nil
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of conversations to list")
	historyCmd.AddCommand(historyShowCmd)
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show API health, corpus stats, and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := newLensClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		var (
			stats     *api.Stats
			healthErr error
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			healthErr = client.Health(gctx)
			return nil
		})
		g.Go(func() error {
			s, err := client.Stats(gctx)
			if err == nil {
				stats = s
			}
			return nil
		})
		g.Wait()

		if healthErr != nil {
			printStatus("API", "unreachable at %s", cfg.API.BaseURL)
		} else {
			printStatus("API", "healthy at %s", cfg.API.BaseURL)
		}
		if stats != nil {
			printStatus("Corpus", "%d chunks across %d guests", stats.TotalChunks, stats.UniqueGuests)
		}
		printStatus("Daily queries", "%d", cfg.Limits.DailyQueries)
		printStatus("Conversations", "%d", cfg.Limits.Conversations)
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, kv := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, kv.Key), kv.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// archiveSession persists the finished transcript. Archive failures are
// reported as warnings and never mask a successful answer.
func archiveSession(sess *session.Session) error {
	archiveSnapshot(sess.Snapshot())
	return nil
}

func archiveSnapshot(snap session.Snapshot) {
	if len(snap.Messages) == 0 {
		return
	}
	cfg, err := config.Load()
	if err != nil {
		return
	}
	store, err := history.Open(cfg.Storage.DataDir)
	if err != nil {
		printWarning("conversation not archived: %v", err)
		return
	}
	defer store.Close()

	if err := store.SaveConversation(snap); err != nil {
		printWarning("conversation not archived: %v", err)
	}
}
