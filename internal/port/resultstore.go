package port

import "thematic/internal/domain"

// ResultStore checkpoints successful per-task coder results so that a rerun
// can skip work already paid for.
type ResultStore interface {
	// GetResult returns the stored result and whether it was present.
	GetResult(key string) (domain.CoderResult, bool, error)

	PutResult(key string, result domain.CoderResult) error
}
