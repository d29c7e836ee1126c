package port

import "thematic/internal/domain"

// Chunker splits interaction text into offset-exact chunks.
type Chunker interface {
	Chunk(text string) []domain.Chunk
}
