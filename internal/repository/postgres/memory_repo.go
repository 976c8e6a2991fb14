package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/keepsake-app/keepsake/internal/errs"
	"github.com/keepsake-app/keepsake/internal/model"
)

// MemoryRepo implements MemoryRepository using PostgreSQL.
type MemoryRepo struct{ db *DB }

// NewMemoryRepo constructs a memory repository.
func NewMemoryRepo(db *DB) *MemoryRepo { return &MemoryRepo{db: db} }

const memoryCols = `id, room_id, type, title, content, created_at, hidden_at`

func scanMemory(row pgx.Row) (*model.MemoryItem, error) {
	var m model.MemoryItem
	err := row.Scan(&m.ID, &m.RoomID, &m.Type, &m.Title, &m.Content, &m.CreatedAt, &m.HiddenAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new memory.
func (r *MemoryRepo) Create(ctx context.Context, m *model.MemoryItem) error {
	const ins = `
INSERT INTO memories (id, room_id, type, title, content, created_at, hidden_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Pool.Exec(ctx, ins, m.ID, m.RoomID, string(m.Type),
		m.Title, m.Content, m.CreatedAt, m.HiddenAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get selects a memory by id.
func (r *MemoryRepo) Get(ctx context.Context, id uuid.UUID) (*model.MemoryItem, error) {
	m, err := scanMemory(r.db.Pool.QueryRow(ctx, `SELECT `+memoryCols+` FROM memories WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// ListByRoom returns every memory of the room, hidden ones included. Filtering
// hidden items is a presentation concern handled by callers.
func (r *MemoryRepo) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.MemoryItem, error) {
	const q = `SELECT ` + memoryCols + ` FROM memories WHERE room_id=$1 ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MemoryItem
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Hide stamps the hidden-at time. Hiding an already hidden memory is a no-op
// so the original timestamp keeps anchoring the retention window.
func (r *MemoryRepo) Hide(ctx context.Context, id uuid.UUID, at time.Time) error {
	const upd = `UPDATE memories SET hidden_at=$2 WHERE id=$1 AND hidden_at IS NULL`
	tag, err := r.db.Pool.Exec(ctx, upd, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either already hidden or missing; only the latter is an error.
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Purge deletes a memory permanently.
func (r *MemoryRepo) Purge(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM memories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
