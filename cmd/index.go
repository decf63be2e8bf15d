package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"secondbrain/internal/app"
	"secondbrain/internal/knowledge"
)

var indexSourceID string

// maxChunkRunes bounds one indexed chunk. Paragraphs are merged up to this
// size; oversized paragraphs are split.
const maxChunkRunes = 1500

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the knowledge base",
}

var indexAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Index text files into the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			total := 0
			for _, path := range args {
				n, err := indexFile(ctx, a.Knowledge, path)
				if err != nil {
					return fmt.Errorf("indexing %s: %w", path, err)
				}
				fmt.Printf("%s: %d chunks\n", path, n)
				total += n
			}
			fmt.Printf("Indexed %d chunks from %d files.\n", total, len(args))
			return nil
		})
	},
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove <source-id>",
	Short: "Remove all documents belonging to a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			n, err := a.Knowledge.DeleteSource(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d documents from source %s.\n", n, args[0])
			return nil
		})
	},
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge base size",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			n, err := a.Knowledge.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d documents indexed.\n", n)
			return nil
		})
	},
}

func init() {
	indexAddCmd.Flags().StringVar(&indexSourceID, "source", "", "source id for the indexed files (defaults to the file name)")
	indexCmd.AddCommand(indexAddCmd, indexRemoveCmd, indexStatusCmd)
	rootCmd.AddCommand(indexCmd)
}

// indexFile chunks one file and upserts its chunks. Returns the chunk count.
func indexFile(ctx context.Context, store *knowledge.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	name := filepath.Base(path)
	sourceID := indexSourceID
	if sourceID == "" {
		sourceID = name
	}

	chunks := chunkText(string(data))
	for i, chunk := range chunks {
		err := store.Add(ctx, knowledge.Document{
			ID:      fmt.Sprintf("%s#%d", sourceID, i),
			Content: chunk,
			Metadata: knowledge.Metadata{
				SourceID:   sourceID,
				SourceName: name,
				ChunkType:  "text",
			},
		})
		if err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}

// chunkText splits text into paragraph-aligned chunks of at most
// maxChunkRunes runes. Blank-line separated paragraphs are merged until the
// limit; a single oversized paragraph is split at the limit.
func chunkText(text string) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		runes := []rune(para)
		for len(runes) > maxChunkRunes {
			flush()
			chunks = append(chunks, string(runes[:maxChunkRunes]))
			runes = runes[maxChunkRunes:]
		}
		para = strings.TrimSpace(string(runes))
		if para == "" {
			continue
		}

		if currentLen > 0 && currentLen+len([]rune(para))+2 > maxChunkRunes {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(para)
		currentLen += len([]rune(para))
	}
	flush()

	return chunks
}
