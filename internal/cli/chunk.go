package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var chunkMaxTokens int

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Show how a file is split into chunks",
	Long: `Split a text file into paragraph chunks and print them as JSON with their
code-point offsets and estimated token counts.

Examples:
  thematic chunk interview.txt
  thematic chunk interview.txt --max-tokens 200`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	chunkCmd.Flags().IntVarP(&chunkMaxTokens, "max-tokens", "t", 0, "token budget per chunk (default from config)")
}

func runChunk(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	maxTokens := GetConfig().Coding.ChunkMaxTokens
	if chunkMaxTokens > 0 {
		maxTokens = chunkMaxTokens
	}

	chunks := newChunker(maxTokens).Chunk(string(data))
	output, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}
	fmt.Println(string(output))
	return nil
}
