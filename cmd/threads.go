package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"secondbrain/internal/app"
	"secondbrain/internal/config"
	"secondbrain/internal/conversation"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Manage conversation threads",
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all threads",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			threads, err := a.Conversations.ListThreads(ctx)
			if err != nil {
				return err
			}
			if len(threads) == 0 {
				fmt.Println("No threads yet.")
				return nil
			}
			idColor := color.New(color.FgCyan)
			for _, t := range threads {
				idColor.Printf("%s", t.ID)
				fmt.Printf("  %s  [%s]  %d messages  updated %s\n",
					t.Title, t.PersonaID, t.MessageCount,
					t.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var threadsShowCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Print a thread's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			messages, err := a.Conversations.List(ctx, args[0])
			if err != nil {
				return err
			}
			userColor := color.New(color.FgGreen, color.Bold)
			assistantColor := color.New(color.FgCyan, color.Bold)
			for _, m := range messages {
				if m.Role == conversation.RoleUser {
					userColor.Println("you:")
				} else {
					assistantColor.Println("assistant:")
				}
				fmt.Println(m.Content)
				fmt.Println()
			}
			return nil
		})
	},
}

var threadsDeleteCmd = &cobra.Command{
	Use:   "delete <thread-id>",
	Short: "Delete a thread and all its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Conversations.DeleteThread(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted thread %s.\n", args[0])
			return nil
		})
	},
}

var threadsClearCmd = &cobra.Command{
	Use:   "clear <thread-id>",
	Short: "Remove a thread's messages, keeping the thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Conversations.Clear(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Cleared thread %s.\n", args[0])
			return nil
		})
	},
}

func init() {
	threadsCmd.AddCommand(threadsListCmd, threadsShowCmd, threadsDeleteCmd, threadsClearCmd)
	rootCmd.AddCommand(threadsCmd)
}

// withApp loads config, sets up the application, runs fn, and tears down.
func withApp(fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	logger := newLogger()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	return fn(ctx, a)
}
