package fs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"thematic/internal/domain"
	"thematic/internal/logger"
	"thematic/internal/port"
)

// ErrInvalidInput is returned for interaction files that cannot be decoded.
var ErrInvalidInput = errors.New("invalid interaction file")

var _ port.InteractionSource = (*Loader)(nil)

// Loader reads interactions from the files a Walker selects.
//
// .txt and .md files hold one interaction each, identified by a UUIDv5 of
// the relative path. .json files hold an array of {"id", "text"} objects and
// .jsonl files one such object per line; a missing id is derived from the
// relative path and the record's position. Explicit ids are canonicalized to
// lowercase UUIDs, and an id that is not a UUID is replaced by its UUIDv5.
// Other extensions are skipped.
type Loader struct {
	walker *Walker
	logger *slog.Logger
}

func NewLoader(walker *Walker, l *slog.Logger) *Loader {
	return &Loader{walker: walker, logger: logger.OrDiscard(l)}
}

type record struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Load walks root, or reads root directly when it is a file.
func (l *Loader) Load(root string) ([]domain.Interaction, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	var files []File
	if info.IsDir() {
		if files, err = l.walker.Walk(root); err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	} else {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		files = []File{{Path: abs, RelPath: filepath.Base(abs), Size: info.Size()}}
	}

	var out []domain.Interaction
	seen := make(map[string]string)
	for _, f := range files {
		items, err := l.loadFile(f)
		if err != nil {
			return nil, err
		}
		for _, in := range items {
			if prev, dup := seen[in.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate interaction id %s in %s and %s", ErrInvalidInput, in.ID, prev, f.RelPath)
			}
			seen[in.ID] = f.RelPath
			out = append(out, in)
		}
	}

	l.logger.Info("interactions loaded", "files", len(files), "interactions", len(out))
	return out, nil
}

func (l *Loader) loadFile(f File) ([]domain.Interaction, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(f.RelPath)) {
	case ".txt", ".md":
		return []domain.Interaction{{ID: DeriveID(f.RelPath), Text: string(data)}}, nil
	case ".json":
		var recs []record
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, f.RelPath, err)
		}
		return l.toInteractions(f.RelPath, recs), nil
	case ".jsonl":
		recs, err := readLines(f.RelPath, data)
		if err != nil {
			return nil, err
		}
		return l.toInteractions(f.RelPath, recs), nil
	default:
		l.logger.Debug("skipping file with unsupported extension", "path", f.RelPath)
		return nil, nil
	}
}

func readLines(rel string, data []byte) ([]record, error) {
	var recs []record
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var r record
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", ErrInvalidInput, rel, line, err)
		}
		recs = append(recs, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, rel, err)
	}
	return recs, nil
}

func (l *Loader) toInteractions(rel string, recs []record) []domain.Interaction {
	out := make([]domain.Interaction, 0, len(recs))
	for i, r := range recs {
		id := strings.TrimSpace(r.ID)
		switch u, err := uuid.Parse(id); {
		case id == "":
			id = DeriveID(rel + "#" + strconv.Itoa(i))
		case err == nil:
			id = u.String()
		default:
			derived := DeriveID(id)
			l.logger.Info("mapped non-uuid interaction id", "file", rel, "id", id, "derived_id", derived)
			id = derived
		}
		out = append(out, domain.Interaction{ID: id, Text: r.Text})
	}
	return out
}

// DeriveID returns the deterministic UUIDv5 used for interactions without
// an explicit id.
func DeriveID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
