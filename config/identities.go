package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"thematic/internal/domain"
)

var ErrInvalidIdentities = errors.New("invalid identities file")

// IdentitySet is an immutable, validated list of identities. It is built once
// at startup and passed to whatever needs it.
type IdentitySet struct {
	items []domain.Identity
	index map[string]int
}

type identitiesFile struct {
	Identities []domain.Identity `yaml:"identities"`
}

// LoadIdentities reads and validates an identities YAML file.
func LoadIdentities(path string) (IdentitySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IdentitySet{}, fmt.Errorf("read identities: %w", err)
	}
	return ParseIdentities(data)
}

// ParseIdentities validates identities YAML content. Every entry needs a
// non-empty id, name and prompt_prefix, ids must be unique and the list must
// not be empty.
func ParseIdentities(data []byte) (IdentitySet, error) {
	var f identitiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return IdentitySet{}, fmt.Errorf("%w: %w", ErrInvalidIdentities, err)
	}
	return NewIdentitySet(f.Identities)
}

// NewIdentitySet trims and validates the given identities.
func NewIdentitySet(identities []domain.Identity) (IdentitySet, error) {
	if len(identities) == 0 {
		return IdentitySet{}, fmt.Errorf("%w: no identities defined", ErrInvalidIdentities)
	}

	set := IdentitySet{
		items: make([]domain.Identity, 0, len(identities)),
		index: make(map[string]int, len(identities)),
	}
	for i, id := range identities {
		id.ID = strings.TrimSpace(id.ID)
		id.Name = strings.TrimSpace(id.Name)
		id.PromptPrefix = strings.TrimSpace(id.PromptPrefix)
		id.Description = strings.TrimSpace(id.Description)

		if err := id.Validate(); err != nil {
			return IdentitySet{}, fmt.Errorf("%w: identity %d: %w", ErrInvalidIdentities, i, err)
		}
		if _, dup := set.index[id.ID]; dup {
			return IdentitySet{}, fmt.Errorf("%w: duplicate identity id %q", ErrInvalidIdentities, id.ID)
		}
		set.index[id.ID] = len(set.items)
		set.items = append(set.items, id)
	}
	return set, nil
}

// All returns a copy of the identities in file order.
func (s IdentitySet) All() []domain.Identity {
	out := make([]domain.Identity, len(s.items))
	copy(out, s.items)
	return out
}

func (s IdentitySet) Get(id string) (domain.Identity, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Identity{}, false
	}
	return s.items[i], true
}

func (s IdentitySet) Len() int {
	return len(s.items)
}
