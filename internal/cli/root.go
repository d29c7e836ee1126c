package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"thematic/config"
	"thematic/internal/adapter/analyzer"
	"thematic/internal/adapter/chunker"
	"thematic/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	log     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "thematic",
	Short: "Thematic coder - Code qualitative interactions from several analyst perspectives",
	Long: `Thematic splits interaction transcripts into chunks, asks a language model to
code every chunk once per analyst identity, validates each quote against the
source text and writes the aggregated codes with stable quote ids.

Example usage:
  thematic code ./interviews            # Code every interaction under a directory
  thematic code --simulate notes.txt    # Dry run without calling a provider
  thematic chunk notes.txt              # Show how a file is chunked
  thematic identities                   # Validate and list identities`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log = logger.New(cfg.Logging, os.Stderr)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./thematic.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func loadIdentities() (config.IdentitySet, error) {
	path := GetConfig().IdentitiesPath(GetRootDir())
	set, err := config.LoadIdentities(path)
	if err != nil {
		return config.IdentitySet{}, fmt.Errorf("failed to load identities from %s: %w", path, err)
	}
	return set, nil
}

func newChunker(maxTokens int) *chunker.ParagraphChunker {
	return chunker.NewParagraphChunker(maxTokens, analyzer.NewTokenizer())
}
