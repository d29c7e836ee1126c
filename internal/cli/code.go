package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"thematic/internal/adapter/cache"
	"thematic/internal/adapter/fs"
	"thematic/internal/adapter/llm"
	"thematic/internal/adapter/store"
	"thematic/internal/port"
	"thematic/internal/resilience"
	"thematic/internal/usecase"
)

var (
	codeSimulate    bool
	codeMaxParallel int
	codeNoStore     bool
	codeOutput      string
)

var codeCmd = &cobra.Command{
	Use:   "code [path]",
	Short: "Code interactions with every identity",
	Long: `Chunk every interaction under path (a directory or a single file), code each
chunk once per identity and write the aggregated codes as JSON.

Successful task results are checkpointed in .thematic/results.db so an
interrupted run resumes where it stopped.

Examples:
  thematic code .                      # Code every interaction in the current directory
  thematic code interviews/ -o out.json
  thematic code --simulate notes.txt   # No provider calls`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCode,
}

func init() {
	rootCmd.AddCommand(codeCmd)
	codeCmd.Flags().BoolVar(&codeSimulate, "simulate", false, "return synthetic codes without calling the provider")
	codeCmd.Flags().IntVarP(&codeMaxParallel, "max-parallel", "p", 0, "maximum concurrent provider calls (default from config)")
	codeCmd.Flags().BoolVar(&codeNoStore, "no-store", false, "do not read or write the result store")
	codeCmd.Flags().StringVarP(&codeOutput, "out", "o", "", "output file (default: stdout)")
}

func runCode(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	cfg := GetConfig()
	if codeSimulate {
		cfg.Coding.Simulate = true
	}
	if codeMaxParallel > 0 {
		cfg.Coding.MaxParallelCalls = codeMaxParallel
	}

	identities, err := loadIdentities()
	if err != nil {
		return err
	}

	loader := fs.NewLoader(fs.NewWalker(cfg.Input.Includes, cfg.Input.Excludes), log)
	interactions, err := loader.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load interactions: %w", err)
	}
	if len(interactions) == 0 {
		return fmt.Errorf("no interactions found under %s", path)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var provider port.CompletionProvider
	if !cfg.Coding.Simulate {
		provider, err = llm.NewProvider(ctx, cfg.Provider)
		if err != nil {
			return fmt.Errorf("failed to create provider: %w", err)
		}
		if cfg.Provider.CacheSize > 0 {
			completions, err := cache.NewCompletionCache(cfg.Provider.CacheSize, cfg.Provider.CacheTTL)
			if err != nil {
				return fmt.Errorf("failed to create completion cache: %w", err)
			}
			defer completions.Close()
			provider = cache.NewCachedProvider(provider, completions)
		}
	}

	var resultStore port.ResultStore
	if cfg.Store.Enabled && !codeNoStore && !cfg.Coding.Simulate {
		st, err := openResultStore()
		if err != nil {
			return err
		}
		defer st.Close()
		resultStore = st
	}

	retrier := resilience.NewRetrier(cfg.Retry.Policy(), log)
	coder := usecase.NewCoder(provider, retrier, log, usecase.CoderOptions{
		Simulate:     cfg.Coding.Simulate,
		DebugContent: cfg.Logging.DebugContent,
	})
	codingUC := usecase.NewCodingUseCase(newChunker(cfg.Coding.ChunkMaxTokens), coder, log, usecase.CodingOptions{
		MaxParallelCalls: cfg.Coding.MaxParallelCalls,
		Store:            resultStore,
	})

	if cfg.Coding.Simulate {
		fmt.Fprintf(os.Stderr, "Coding %d interactions with %d identities (simulated)...\n", len(interactions), identities.Len())
	} else {
		fmt.Fprintf(os.Stderr, "Coding %d interactions with %d identities using %s...\n", len(interactions), identities.Len(), provider.ModelName())
	}

	result, runErr := codingUC.Run(ctx, interactions, identities.All(), newProgress())
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("coding failed: %w", runErr)
	}

	output, err := json.MarshalIndent(result.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if codeOutput != "" {
		if err := os.WriteFile(codeOutput, output, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		fmt.Println(string(output))
	}

	fmt.Fprintf(os.Stderr, "\nCoding complete:\n")
	fmt.Fprintf(os.Stderr, "  Chunks:            %d\n", result.Chunks)
	fmt.Fprintf(os.Stderr, "  Tasks:             %d/%d settled\n", result.Done, result.Tasks)
	fmt.Fprintf(os.Stderr, "  Cached:            %d\n", result.Cached)
	fmt.Fprintf(os.Stderr, "  Failed:            %d\n", result.Failed)
	fmt.Fprintf(os.Stderr, "  Codes:             %d (%d quotes)\n", len(result.Result.Codes), result.Result.QuoteCount())
	fmt.Fprintf(os.Stderr, "  Prompt tokens:     %d\n", result.Result.TokenUsage.PromptTokens)
	fmt.Fprintf(os.Stderr, "  Completion tokens: %d\n", result.Result.TokenUsage.CompletionTokens)

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "\nInterrupted: partial result written. Run again to resume from the store.\n")
		return runErr
	}
	return nil
}

// openResultStore opens the bolt store and brings its schema up to date,
// clearing results recorded under a different coding configuration.
func openResultStore() (*store.BoltStore, error) {
	cfg := GetConfig()
	if err := cfg.EnsureStoreDir(GetRootDir()); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	st, err := store.NewBoltStore(cfg.StorePath(GetRootDir()))
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}

	check, err := st.Prepare(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to migrate result store: %w", err)
	}
	if check.NeedsRebuild {
		fmt.Fprintf(os.Stderr, "Cleared stored results: %s\n", check.Reason)
	}
	if n, err := st.Count(); err == nil && n > 0 {
		fmt.Fprintf(os.Stderr, "Resuming with %d stored results\n", n)
	}
	return st, nil
}

// newProgress draws a progress bar on stderr once the total is known.
func newProgress() usecase.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		barMu     sync.Mutex
		startTime time.Time
	)

	return func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Coding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		bar.Set(done)

		if done > 0 {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Coding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
