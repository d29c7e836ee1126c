package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"thematic/internal/usecase"
)

var (
	promptIdentity string
	promptChunk    int
)

var promptCmd = &cobra.Command{
	Use:   "prompt <file>",
	Short: "Render the coding prompt for one chunk",
	Long: `Render the system and user messages the coder sends for one chunk of a file,
for manual inspection or for pasting into another tool.

Examples:
  thematic prompt --identity objective-analyst interview.txt
  thematic prompt --identity skeptic --chunk 2 interview.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptIdentity, "identity", "i", "", "identity id (required)")
	promptCmd.Flags().IntVarP(&promptChunk, "chunk", "c", 0, "chunk index")
	promptCmd.MarkFlagRequired("identity")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	identities, err := loadIdentities()
	if err != nil {
		return err
	}
	identity, ok := identities.Get(promptIdentity)
	if !ok {
		return fmt.Errorf("unknown identity: %s", promptIdentity)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	chunks := newChunker(GetConfig().Coding.ChunkMaxTokens).Chunk(string(data))
	if promptChunk < 0 || promptChunk >= len(chunks) {
		return fmt.Errorf("chunk %d out of range: file has %d chunks", promptChunk, len(chunks))
	}

	coder := usecase.NewCoder(nil, nil, log, usecase.CoderOptions{})
	req, err := coder.Prompt(identity, chunks[promptChunk])
	if err != nil {
		return err
	}

	fmt.Println("## System")
	fmt.Println(req.SystemMessage)
	fmt.Println()
	fmt.Println("## User")
	fmt.Println(req.UserMessage)
	return nil
}
