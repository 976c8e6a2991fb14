package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/keepsake-app/keepsake/internal/errs"
	"github.com/keepsake-app/keepsake/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestRoomRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRoomRepo(db)

	ctx := context.Background()
	now := time.Now().UTC()
	owner := uuid.Must(uuid.NewV4())
	member := uuid.Must(uuid.NewV4())
	room := &model.Room{
		ID:         uuid.Must(uuid.NewV4()),
		Name:       "summer",
		Owner:      owner,
		Visibility: model.VisibilityPrivate,
		AllowList:  []uuid.UUID{member},
		Capsule: &model.CapsuleConfig{
			Mode:     model.ModeDuration,
			Duration: model.CapsuleDuration{Days: 30},
		},
		CreatedAt:  now,
		ShareToken: "tok",
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO rooms`).
		WithArgs(room.ID, "summer", owner, "private", pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), now, "", "tok").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO room_members`).
		WithArgs(room.ID, member).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Create(ctx, room))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepo_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRoomRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRoomRepo_Get_OK_CapsuleRoundTrip(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRoomRepo(db)

	id := uuid.Must(uuid.NewV4())
	owner := uuid.Must(uuid.NewV4())
	now := time.Now().UTC()
	mode := "duration"
	days, hours, minutes := 1, 2, 3

	cols := []string{"id", "name", "owner_id", "visibility", "capsule_mode", "capsule_days",
		"capsule_hours", "capsule_minutes", "fixed_unlock_at", "created_at", "background_track", "share_token"}
	mock.ExpectQuery(`SELECT .+ FROM rooms WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(id, "trip", owner, model.VisibilityPublic, &mode, &days, &hours, &minutes,
				(*time.Time)(nil), now, "lofi", "tok"))
	mock.ExpectQuery(`SELECT principal FROM room_members`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"principal"}))

	room, err := r.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, room.Capsule)
	require.Equal(t, model.ModeDuration, room.Capsule.Mode)
	require.Equal(t, model.CapsuleDuration{Days: 1, Hours: 2, Minutes: 3}, room.Capsule.Duration)
	require.Empty(t, room.AllowList)
}

func TestRoomRepo_Update_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRoomRepo(db)

	room := &model.Room{ID: uuid.Must(uuid.NewV4()), Name: "x", Visibility: model.VisibilityPublic}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE rooms`).
		WithArgs(room.ID, "x", "public", pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := r.Update(context.Background(), room)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRoomRepo_Delete_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRoomRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`DELETE FROM rooms WHERE id=\$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, r.Delete(context.Background(), id))
}
