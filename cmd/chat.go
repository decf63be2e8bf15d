package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"secondbrain/internal/app"
	"secondbrain/internal/config"
	"secondbrain/internal/generate"
	"secondbrain/internal/pipeline"
)

var (
	chatThreadID  string
	chatPersonaID string
	chatSources   []string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatThreadID, "thread", "t", "", "thread id to continue (new thread when empty)")
	chatCmd.Flags().StringVarP(&chatPersonaID, "persona", "p", "", "persona id for this conversation")
	chatCmd.Flags().StringSliceVarP(&chatSources, "source", "s", nil, "restrict retrieval to these source ids")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	threadID := chatThreadID
	personaID := chatPersonaID

	titleColor := color.New(color.FgCyan, color.Bold)
	promptColor := color.New(color.FgGreen, color.Bold)
	dimColor := color.New(color.FgHiBlack)

	titleColor.Printf("secondbrain %s\n", AppVersion)
	dimColor.Println("Type /help for commands, Ctrl+D to quit.")
	if threadID != "" {
		dimColor.Printf("Continuing thread %s\n", threadID)
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("you> ")

		if !scanner.Scan() {
			fmt.Println("\nGoodbye.")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done, err := handleChatCommand(ctx, a, input, &threadID, &personaID)
			if err != nil {
				color.Red("error: %v", err)
			}
			if done {
				break
			}
			continue
		}

		result, err := a.Pipeline.Run(ctx, pipeline.Turn{
			ThreadID:  threadID,
			Query:     input,
			PersonaID: personaID,
			Sources:   chatSources,
		}, streamToStdout())
		fmt.Println()
		if err != nil {
			if errors.Is(err, pipeline.ErrThreadBusy) {
				color.Red("that thread is still answering a previous question")
				continue
			}
			color.Red("error: %v", err)
			continue
		}

		// Keep talking on the same thread across turns.
		threadID = result.ThreadID
		fmt.Println()
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading input: %w", err)
	}

	if threadID != "" {
		fmt.Printf("Conversation saved to thread %s\n", threadID)
	}
	return nil
}

// streamToStdout returns a callback printing chunks as they arrive.
func streamToStdout() generate.StreamFunc {
	answerColor := color.New(color.FgWhite)
	return func(_ context.Context, chunk string) error {
		answerColor.Print(chunk)
		return nil
	}
}

// handleChatCommand processes slash commands. Returns true when the REPL
// should exit.
func handleChatCommand(ctx context.Context, a *app.App, input string, threadID, personaID *string) (bool, error) {
	parts := strings.Fields(input)

	switch parts[0] {
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /persona [id]   show or switch persona")
		fmt.Println("  /thread [id]    show or switch thread")
		fmt.Println("  /clear          clear the current thread's messages")
		fmt.Println("  /new            start a fresh thread")
		fmt.Println("  /exit           quit")
		fmt.Println()

	case "/persona":
		if len(parts) < 2 {
			for _, p := range a.Personas.List() {
				marker := " "
				if p.ID == *personaID {
					marker = "*"
				}
				fmt.Printf("%s %s %s - %s\n", marker, p.Icon, p.ID, p.Description)
			}
			fmt.Println()
			return false, nil
		}
		if !a.Personas.Has(parts[1]) {
			return false, fmt.Errorf("unknown persona %q", parts[1])
		}
		*personaID = parts[1]
		fmt.Printf("Persona set to %s.\n\n", parts[1])

	case "/thread":
		if len(parts) < 2 {
			if *threadID == "" {
				fmt.Println("No thread yet; one is created on your first question.")
			} else {
				fmt.Printf("Current thread: %s\n", *threadID)
			}
			fmt.Println()
			return false, nil
		}
		*threadID = parts[1]
		fmt.Printf("Switched to thread %s.\n\n", parts[1])

	case "/clear":
		if *threadID == "" {
			fmt.Println("Nothing to clear yet.")
			fmt.Println()
			return false, nil
		}
		if err := a.Conversations.Clear(ctx, *threadID); err != nil {
			return false, err
		}
		fmt.Println("Thread history cleared.")
		fmt.Println()

	case "/new":
		*threadID = ""
		fmt.Println("Next question starts a fresh thread.")
		fmt.Println()

	case "/exit", "/quit":
		fmt.Println("Goodbye.")
		return true, nil

	default:
		fmt.Printf("Unknown command: %s\n", parts[0])
		fmt.Println("Type /help to see available commands.")
		fmt.Println()
	}

	return false, nil
}
