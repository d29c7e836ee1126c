package port

import "thematic/internal/domain"

// InteractionSource discovers interactions under a root directory.
type InteractionSource interface {
	Load(root string) ([]domain.Interaction, error)
}
