package quote

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidFormat = errors.New("invalid quote id format")
	ErrInvalidSpan   = errors.New("invalid quote span")
)

var idPattern = regexp.MustCompile(
	`^([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})(?::msg_(\d+))?:ch_(\d+):(\d+)-(\d+)$`,
)

// Ref is the decoded form of a quote identifier:
//
//	{interaction_id}[:msg_{n}]:ch_{chunk}:{start}-{end}
type Ref struct {
	InteractionID string `json:"interaction_id"`
	MsgIndex      *int   `json:"msg_index,omitempty"` // Position within a message thread, when the source is one
	ChunkIndex    int    `json:"chunk_index"`
	Start         int    `json:"start_pos"`
	End           int    `json:"end_pos"`
}

// Encode renders ref as a quote identifier. The interaction id is written
// as given; only Decode enforces the UUID form.
func Encode(ref Ref) (string, error) {
	if ref.Start >= ref.End {
		return "", fmt.Errorf("%w: start %d must be less than end %d", ErrInvalidSpan, ref.Start, ref.End)
	}
	if ref.Start < 0 || ref.ChunkIndex < 0 || (ref.MsgIndex != nil && *ref.MsgIndex < 0) {
		return "", fmt.Errorf("%w: indices must be non-negative", ErrInvalidSpan)
	}
	if ref.InteractionID == "" || strings.Contains(ref.InteractionID, ":") {
		return "", fmt.Errorf("%w: interaction id %q", ErrInvalidFormat, ref.InteractionID)
	}

	var b strings.Builder
	b.WriteString(ref.InteractionID)
	if ref.MsgIndex != nil {
		fmt.Fprintf(&b, ":msg_%d", *ref.MsgIndex)
	}
	fmt.Fprintf(&b, ":ch_%d:%d-%d", ref.ChunkIndex, ref.Start, ref.End)
	return b.String(), nil
}

// Decode parses a quote identifier. Anything that does not match the
// grammar exactly is ErrInvalidFormat.
func Decode(s string) (Ref, error) {
	m := idPattern.FindStringSubmatch(s)
	if m == nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	ref := Ref{InteractionID: m[1]}
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Ref{}, fmt.Errorf("%w: msg index: %w", ErrInvalidFormat, err)
		}
		ref.MsgIndex = &n
	}

	var err error
	if ref.ChunkIndex, err = strconv.Atoi(m[3]); err != nil {
		return Ref{}, fmt.Errorf("%w: chunk index: %w", ErrInvalidFormat, err)
	}
	if ref.Start, err = strconv.Atoi(m[4]); err != nil {
		return Ref{}, fmt.Errorf("%w: start: %w", ErrInvalidFormat, err)
	}
	if ref.End, err = strconv.Atoi(m[5]); err != nil {
		return Ref{}, fmt.Errorf("%w: end: %w", ErrInvalidFormat, err)
	}
	if ref.Start >= ref.End {
		return Ref{}, fmt.Errorf("%w: start %d not before end %d", ErrInvalidFormat, ref.Start, ref.End)
	}
	return ref, nil
}
