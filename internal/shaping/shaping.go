// Package shaping trims observation input/output according to the requested verbosity.
package shaping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
)

// TruncationMarker is appended to values cut short.
const TruncationMarker = "...[truncated]"

// Limits are the rune budgets per verbosity level.
type Limits struct {
	TruncatedChars int
	CompactChars   int
}

// DefaultLimits returns the budgets used when none are configured.
func DefaultLimits() Limits {
	return Limits{TruncatedChars: 1000, CompactChars: 200}
}

func (l Limits) budget(v domain.Verbosity) int {
	switch v {
	case domain.VerbosityTruncated:
		return l.TruncatedChars
	case domain.VerbosityCompact:
		return l.CompactChars
	}
	return 0
}

// Apply returns a copy of obs with Input and Output shaped for v.
// Full verbosity returns obs untouched.
func Apply(obs *domain.Observation, v domain.Verbosity, l Limits) *domain.Observation {
	if obs == nil {
		return nil
	}
	limit := l.budget(v)
	if limit <= 0 {
		return obs
	}
	shaped := *obs
	shaped.Input = Value(obs.Input, limit)
	shaped.Output = Value(obs.Output, limit)
	return &shaped
}

// Value keeps v when its serialized form fits in limit runes. Otherwise it
// returns the first limit runes of that form followed by TruncationMarker.
func Value(v any, limit int) any {
	if v == nil || limit <= 0 {
		return v
	}
	text := serialize(v)
	if utf8.RuneCountInString(text) <= limit {
		return v
	}
	runes := []rune(text)
	return string(runes[:limit]) + TruncationMarker
}

func serialize(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
