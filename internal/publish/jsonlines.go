// Package publish provides engine sinks that hand finished cycle results to
// downstream consumers. Sinks forward results; they never reduce them.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/specialistvlad/clusterprops/internal/engine"
)

// JSONLines writes one JSON document per cycle to w.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines returns a sink writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

// Publish implements engine.Sink.
func (j *JSONLines) Publish(_ context.Context, r *engine.Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write cycle %s: %w", r.CycleID, err)
	}
	return nil
}
