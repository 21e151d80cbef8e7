// Package audit records who did what to which entity. The trail is the
// first thing consulted when a balance looks wrong, so every state
// transition and return submission lands here.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"stockledger/internal/core/id"
)

// Action is the type of audited operation.
type Action string

const (
	ActionCreate   Action = "create"
	ActionConfirm  Action = "confirm"
	ActionReject   Action = "reject"
	ActionComplete Action = "complete"
	ActionReturn   Action = "return"
)

// Entry is a single audit record.
type Entry struct {
	ID         id.ID           `db:"id"`
	EntityType string          `db:"entity_type"`
	EntityID   id.ID           `db:"entity_id"`
	Action     Action          `db:"action"`
	ActorID    string          `db:"actor_id"`
	Payload    json.RawMessage `db:"payload"`
	CreatedAt  time.Time       `db:"created_at"`
}

// Recorder persists audit entries. Implementations write within the
// caller's transaction: if the business write rolls back, so does the trail.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NopRecorder discards entries. Used in tests.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, entry Entry) error { return nil }
