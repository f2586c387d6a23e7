package checkpoint

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every pending goose migration in migrations/ against db.
// Safe to call on every process start; goose tracks the applied set in its
// own bookkeeping table.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to set goose dialect")
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to apply checkpoint migrations")
	}
	return nil
}

// PostgresStore is the reference durable-layer adapter: checkpoints and
// chat history in Postgres via sqlx/pgx, side-effect ids enforced unique at
// the row level so a concurrent replay can never double-record one.
type PostgresStore struct {
	db  *sqlx.DB
	log logr.Logger
}

// NewPostgresStore wraps an already-connected database handle. Run
// Migrate(db.DB) once before first use.
func NewPostgresStore(db *sqlx.DB, log logr.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

type checkpointRow struct {
	ID           string    `db:"id"`
	SessionID    string    `db:"session_id"`
	Stage        string    `db:"stage"`
	SnapshotJSON []byte    `db:"snapshot_json"`
	MetadataJSON []byte    `db:"metadata_json"`
	CreatedAt    time.Time `db:"created_at"`
}

func (p *PostgresStore) Save(ctx context.Context, sessionID string, snapshot state.BrainState, stage string, metadata map[string]interface{}) (string, error) {
	id := uuid.NewString()

	snapshotJSON, err := state.Marshal(snapshot)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to marshal snapshot for checkpoint")
	}

	var metaJSON []byte
	if metadata != nil {
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to marshal checkpoint metadata")
		}
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO checkpoints (id, session_id, stage, snapshot_json, metadata_json)
		VALUES ($1, $2, $3, $4, $5)
	`, id, sessionID, stage, snapshotJSON, metaJSON)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to insert checkpoint")
	}

	p.log.V(1).Info("checkpoint saved", "session_id", sessionID, "stage", stage, "checkpoint_id", id)
	return id, nil
}

func (p *PostgresStore) Load(ctx context.Context, sessionID, checkpointID string) (*Checkpoint, error) {
	var row checkpointRow
	var err error

	if checkpointID == "" {
		err = p.db.GetContext(ctx, &row, `
			SELECT id, session_id, stage, snapshot_json, metadata_json, created_at
			FROM checkpoints WHERE session_id = $1
			ORDER BY created_at DESC LIMIT 1
		`, sessionID)
	} else {
		err = p.db.GetContext(ctx, &row, `
			SELECT id, session_id, stage, snapshot_json, metadata_json, created_at
			FROM checkpoints WHERE session_id = $1 AND id = $2
		`, sessionID, checkpointID)
	}
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrorTypeNotFound, "no checkpoint found for session")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to load checkpoint")
	}

	return rowToCheckpoint(row)
}

func (p *PostgresStore) List(ctx context.Context, sessionID string, limit int) ([]Checkpoint, error) {
	var rows []checkpointRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, session_id, stage, snapshot_json, metadata_json, created_at
		FROM checkpoints WHERE session_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to list checkpoints")
	}

	out := make([]Checkpoint, 0, len(rows))
	for _, row := range rows {
		cp, err := rowToCheckpoint(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *cp)
	}
	return out, nil
}

func rowToCheckpoint(row checkpointRow) (*Checkpoint, error) {
	snapshot, err := state.Unmarshal(row.SnapshotJSON)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to unmarshal checkpoint snapshot")
	}

	var metadata map[string]interface{}
	if len(row.MetadataJSON) > 0 {
		if err := json.Unmarshal(row.MetadataJSON, &metadata); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to unmarshal checkpoint metadata")
		}
	}

	return &Checkpoint{
		ID:        row.ID,
		SessionID: row.SessionID,
		Stage:     row.Stage,
		Snapshot:  snapshot,
		Metadata:  metadata,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (p *PostgresStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO chat_history (id, session_id, role, content)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), sessionID, role, content)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to append chat message")
	}
	return nil
}

func (p *PostgresStore) LoadHistory(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	type row struct {
		ID        string    `db:"id"`
		SessionID string    `db:"session_id"`
		Role      string    `db:"role"`
		Content   string    `db:"content"`
		CreatedAt time.Time `db:"created_at"`
	}
	var rows []row
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, session_id, role, content, created_at
		FROM chat_history WHERE session_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to load chat history")
	}

	out := make([]ChatMessage, len(rows))
	for i, r := range rows {
		out[i] = ChatMessage{ID: r.ID, SessionID: r.SessionID, Role: r.Role, Content: r.Content, CreatedAt: r.CreatedAt}
	}
	return out, nil
}

func (p *PostgresStore) MarkEffect(ctx context.Context, sessionID, effectID string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO side_effects (session_id, effect_id) VALUES ($1, $2)
		ON CONFLICT (session_id, effect_id) DO NOTHING
	`, sessionID, effectID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to mark effect executed")
	}
	return nil
}

func (p *PostgresStore) EffectExecuted(ctx context.Context, sessionID, effectID string) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM side_effects WHERE session_id = $1 AND effect_id = $2)
	`, sessionID, effectID)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrorTypeStore, "failed to check effect ledger")
	}
	return exists, nil
}
