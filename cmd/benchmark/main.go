package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"thematic/config"
	"thematic/internal/adapter/analyzer"
	"thematic/internal/adapter/chunker"
	"thematic/internal/adapter/fs"
	"thematic/internal/adapter/quote"
	"thematic/internal/domain"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding the coded interactions")
	resultPath := flag.String("result", "", "Coding result JSON written by 'thematic code'")
	flag.Parse()

	if *resultPath == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir ./interviews -result out.json")
		fmt.Println("\nChecks:")
		fmt.Println("  1. Every quote id decodes")
		fmt.Println("  2. Every quote points at an existing chunk")
		fmt.Println("  3. Every quote's text is the exact chunk slice at its offsets")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(*resultPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading result: %v\n", err)
		os.Exit(1)
	}
	var result domain.CoderResult
	if err := json.Unmarshal(data, &result); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing result: %v\n", err)
		os.Exit(1)
	}

	loader := fs.NewLoader(fs.NewWalker(cfg.Input.Includes, cfg.Input.Excludes), nil)
	interactions, err := loader.Load(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading interactions: %v\n", err)
		os.Exit(1)
	}

	chk := chunker.NewParagraphChunker(cfg.Coding.ChunkMaxTokens, analyzer.NewTokenizer())
	chunks := make(map[string][]domain.Chunk, len(interactions))
	totalChunks := 0
	for _, in := range interactions {
		chunks[in.ID] = chk.Chunk(in.Text)
		totalChunks += len(chunks[in.ID])
	}

	fmt.Println("QUOTE INTEGRITY BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Interactions: %d\n", len(interactions))
	fmt.Printf("Chunks:       %d (max %d tokens)\n", totalChunks, cfg.Coding.ChunkMaxTokens)
	fmt.Printf("Codes:        %d\n", len(result.Codes))
	fmt.Printf("Quotes:       %d\n", result.QuoteCount())
	fmt.Println(strings.Repeat("-", 70))

	var badID, badChunk, badText, ok int
	for _, code := range result.Codes {
		for _, q := range code.Quotes {
			ref, err := quote.Decode(q.QuoteID)
			if err != nil {
				badID++
				fmt.Printf("BAD ID    %s\n", q.QuoteID)
				continue
			}
			cs := chunks[ref.InteractionID]
			if ref.ChunkIndex >= len(cs) {
				badChunk++
				fmt.Printf("NO CHUNK  %s\n", q.QuoteID)
				continue
			}
			text, inRange := quote.Slice(cs[ref.ChunkIndex].Text, ref.Start, ref.End)
			if !inRange || text != q.Text {
				badText++
				fmt.Printf("MISMATCH  %s [%s]\n", q.QuoteID, code.Label)
				continue
			}
			ok++
		}
	}

	total := badID + badChunk + badText + ok
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Verified quotes:   %d/%d\n", ok, total)
	fmt.Printf("  Invalid ids:       %d\n", badID)
	fmt.Printf("  Missing chunks:    %d\n", badChunk)
	fmt.Printf("  Text mismatches:   %d\n", badText)
	if totalChunks > 0 {
		fmt.Printf("  Codes per chunk:   %.2f\n", float64(len(result.Codes))/float64(totalChunks))
	}
	fmt.Printf("  Tokens:            %d prompt, %d completion\n", result.TokenUsage.PromptTokens, result.TokenUsage.CompletionTokens)

	if ok == total {
		fmt.Println("  Status: GOOD - every quote resolves to its source text")
	} else {
		fmt.Println("  Status: POOR - result does not match these interactions or settings")
		os.Exit(2)
	}
}
