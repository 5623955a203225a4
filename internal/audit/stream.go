// Package audit records the gateway's decision and trade streams as NDJSON:
// one self-contained JSON object per line, append-only. Entries are written
// before the caller proceeds, so the stream never lags the state it
// describes.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// recentLimit bounds the in-memory tail kept for read-back endpoints.
const recentLimit = 1024

// stream is the shared NDJSON sink: serialized writes plus a bounded tail
// of decoded entries.
type stream[T any] struct {
	mu     sync.Mutex
	w      io.Writer
	recent []T
}

func newStream[T any](w io.Writer) *stream[T] {
	return &stream[T]{w: w}
}

// record writes one entry as a JSON line and retains it in the tail. A nil
// writer keeps entries in memory only.
func (s *stream[T]) record(entry T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w != nil {
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("audit encode: %w", err)
		}
		if _, err := s.w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("audit write: %w", err)
		}
	}

	s.recent = append(s.recent, entry)
	if len(s.recent) > recentLimit {
		s.recent = s.recent[len(s.recent)-recentLimit:]
	}
	return nil
}

// tail returns up to limit of the newest entries matching keep (nil keeps
// everything), oldest first.
func (s *stream[T]) tail(limit int, keep func(T) bool) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = recentLimit
	}
	out := make([]T, 0, limit)
	for _, entry := range s.recent {
		if keep == nil || keep(entry) {
			out = append(out, entry)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// OpenSink opens an append-only NDJSON file, creating it if needed.
func OpenSink(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit sink %s: %w", path, err)
	}
	return f, nil
}
