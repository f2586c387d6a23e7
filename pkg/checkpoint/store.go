// Package checkpoint implements the durable layer spec.md §6 names: a
// per-session checkpoint log, chat history, and an idempotency ledger of
// executed side-effect ids.
package checkpoint

import (
	"context"
	"time"

	"github.com/corvid-robotics/robobrain/pkg/state"
)

// Checkpoint is one persisted stage-boundary snapshot.
type Checkpoint struct {
	ID        string
	SessionID string
	Stage     string
	Snapshot  state.BrainState
	Metadata  map[string]interface{}
	CreatedAt time.Time
}

// ChatMessage is one persisted turn in a session's history, independent of
// the in-memory MessagesState window the brain state carries.
type ChatMessage struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store is the checkpointer contract spec.md §6 defines: total ordering
// within a session, durability across restarts. Save/Load/List operate on
// the snapshot log; AppendMessage/LoadHistory on chat history;
// MarkEffect/EffectExecuted on the idempotency ledger.
type Store interface {
	Save(ctx context.Context, sessionID string, snapshot state.BrainState, stage string, metadata map[string]interface{}) (string, error)
	Load(ctx context.Context, sessionID, checkpointID string) (*Checkpoint, error)
	List(ctx context.Context, sessionID string, limit int) ([]Checkpoint, error)

	AppendMessage(ctx context.Context, sessionID, role, content string) error
	LoadHistory(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error)

	MarkEffect(ctx context.Context, sessionID, effectID string) error
	EffectExecuted(ctx context.Context, sessionID, effectID string) (bool, error)
}
