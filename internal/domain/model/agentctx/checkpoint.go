package agentctx

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Checkpoint is an immutable, independently restorable snapshot of the
// whole context plus whatever the caller says it was doing last.
type Checkpoint struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Phase         Phase           `json:"phase"`
	Context       AgentContext    `json:"context"`
	LastOperation json.RawMessage `json:"last_operation,omitempty"`
}

// NewCheckpoint snapshots ctx. lastOperation may be nil, raw JSON, or any
// JSON-encodable value.
func NewCheckpoint(id string, at time.Time, ctx AgentContext, lastOperation any) (*Checkpoint, error) {
	raw, err := encodeOperation(lastOperation)
	if err != nil {
		return nil, err
	}
	snap := ctx.Clone()
	return &Checkpoint{
		ID:            id,
		Timestamp:     at,
		Phase:         snap.Phase,
		Context:       snap,
		LastOperation: raw,
	}, nil
}

func encodeOperation(v any) (json.RawMessage, error) {
	switch op := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(op) == 0 {
			return nil, nil
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, op); err != nil {
			return nil, fmt.Errorf("last operation is not valid JSON: %w", err)
		}
		return buf.Bytes(), nil
	default:
		b, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("failed to encode last operation: %w", err)
		}
		return b, nil
	}
}

// SortCheckpoints orders checkpoints oldest first by timestamp, falling back
// to the id for equal timestamps. ULID ids sort in creation order, so the
// tie-break agrees with the timestamp order.
func SortCheckpoints(cps []*Checkpoint) {
	sort.SliceStable(cps, func(i, j int) bool {
		if !cps[i].Timestamp.Equal(cps[j].Timestamp) {
			return cps[i].Timestamp.Before(cps[j].Timestamp)
		}
		return cps[i].ID < cps[j].ID
	})
}

// IDGenerator produces lexicographically time-ordered checkpoint ids.
// ULIDs generated within the same millisecond stay strictly increasing.
type IDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewIDGenerator creates a generator backed by crypto/rand
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewID returns a new ULID string for the given time
func (g *IDGenerator) NewID(at time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(at), g.entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate checkpoint id: %w", err)
	}
	return id.String(), nil
}

// IsValidID reports whether s is a well-formed checkpoint id
func IsValidID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
