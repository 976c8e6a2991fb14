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

// RoomRepo implements RoomRepository using PostgreSQL. The allow-list
// lives in room_members and is written in the same transaction as the room.
type RoomRepo struct{ db *DB }

// NewRoomRepo constructs a room repository.
func NewRoomRepo(db *DB) *RoomRepo { return &RoomRepo{db: db} }

const roomCols = `id, name, owner_id, visibility, capsule_mode, capsule_days,
capsule_hours, capsule_minutes, fixed_unlock_at, created_at, background_track, share_token`

// scanRoom reads one room row (without allow-list) into a model.Room.
func scanRoom(row pgx.Row) (*model.Room, error) {
	var (
		r       model.Room
		mode    *string
		days    *int
		hours   *int
		minutes *int
		fixedAt *time.Time
	)
	err := row.Scan(&r.ID, &r.Name, &r.Owner, &r.Visibility, &mode, &days,
		&hours, &minutes, &fixedAt, &r.CreatedAt, &r.BackgroundTrack, &r.ShareToken)
	if err != nil {
		return nil, err
	}
	if mode != nil {
		cfg := model.CapsuleConfig{Mode: model.CapsuleMode(*mode)}
		if cfg.Mode == model.ModeDuration {
			if days != nil {
				cfg.Duration.Days = *days
			}
			if hours != nil {
				cfg.Duration.Hours = *hours
			}
			if minutes != nil {
				cfg.Duration.Minutes = *minutes
			}
		}
		if cfg.Mode == model.ModeFixedDate && fixedAt != nil {
			cfg.FixedUnlockAt = *fixedAt
		}
		r.Capsule = &cfg
	}
	return &r, nil
}

// capsuleArgs flattens an optional capsule into the nullable columns.
func capsuleArgs(c *model.CapsuleConfig) (mode *string, days, hours, minutes *int, fixedAt *time.Time) {
	if c == nil {
		return nil, nil, nil, nil, nil
	}
	m := string(c.Mode)
	mode = &m
	switch c.Mode {
	case model.ModeDuration:
		d, h, mi := c.Duration.Days, c.Duration.Hours, c.Duration.Minutes
		days, hours, minutes = &d, &h, &mi
	case model.ModeFixedDate:
		t := c.FixedUnlockAt
		fixedAt = &t
	}
	return
}

// Create inserts the room and its allow-list atomically.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const ins = `
INSERT INTO rooms (id, name, owner_id, visibility, capsule_mode, capsule_days,
capsule_hours, capsule_minutes, fixed_unlock_at, created_at, background_track, share_token)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	mode, days, hours, minutes, fixedAt := capsuleArgs(room.Capsule)
	if _, err = tx.Exec(ctx, ins, room.ID, room.Name, room.Owner, string(room.Visibility),
		mode, days, hours, minutes, fixedAt, room.CreatedAt, room.BackgroundTrack, room.ShareToken); err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrAlreadyExists
		}
		return err
	}
	err = insertMembers(ctx, tx, room.ID, room.AllowList)
	return err
}

func insertMembers(ctx context.Context, tx pgx.Tx, roomID uuid.UUID, members []uuid.UUID) error {
	const ins = `INSERT INTO room_members (room_id, principal) VALUES ($1,$2)`
	for _, p := range members {
		if _, err := tx.Exec(ctx, ins, roomID, p); err != nil {
			return err
		}
	}
	return nil
}

// Update replaces the room's mutable fields and rewrites the allow-list.
func (r *RoomRepo) Update(ctx context.Context, room *model.Room) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const upd = `
UPDATE rooms
SET name=$2, visibility=$3, capsule_mode=$4, capsule_days=$5, capsule_hours=$6,
capsule_minutes=$7, fixed_unlock_at=$8, background_track=$9
WHERE id=$1`
	mode, days, hours, minutes, fixedAt := capsuleArgs(room.Capsule)
	tag, err := tx.Exec(ctx, upd, room.ID, room.Name, string(room.Visibility),
		mode, days, hours, minutes, fixedAt, room.BackgroundTrack)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if _, err = tx.Exec(ctx, `DELETE FROM room_members WHERE room_id=$1`, room.ID); err != nil {
		return err
	}
	err = insertMembers(ctx, tx, room.ID, room.AllowList)
	return err
}

// Delete removes the room; memories and members go with it via cascade.
func (r *RoomRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM rooms WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Get selects a room by id, allow-list included.
func (r *RoomRepo) Get(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	room, err := scanRoom(r.db.Pool.QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if room.AllowList, err = r.members(ctx, room.ID); err != nil {
		return nil, err
	}
	return room, nil
}

// GetByShareToken resolves a share-link token. The caller still owes an
// access check: a token grants discovery, not authorization.
func (r *RoomRepo) GetByShareToken(ctx context.Context, token string) (*model.Room, error) {
	room, err := scanRoom(r.db.Pool.QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE share_token=$1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if room.AllowList, err = r.members(ctx, room.ID); err != nil {
		return nil, err
	}
	return room, nil
}

func (r *RoomRepo) members(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT principal FROM room_members WHERE room_id=$1`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var p uuid.UUID
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListForPrincipal returns rooms owned by or shared with the principal.
func (r *RoomRepo) ListForPrincipal(ctx context.Context, principal uuid.UUID) ([]model.Room, error) {
	const q = `
SELECT ` + roomCols + `
FROM rooms
WHERE owner_id=$1 OR id IN (SELECT room_id FROM room_members WHERE principal=$1)
ORDER BY created_at DESC`
	return r.list(ctx, q, principal)
}

// ListPublic returns the discover feed.
func (r *RoomRepo) ListPublic(ctx context.Context) ([]model.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE visibility='public' ORDER BY created_at DESC`
	return r.list(ctx, q)
}

func (r *RoomRepo) list(ctx context.Context, q string, args ...any) ([]model.Room, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].AllowList, err = r.members(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}
