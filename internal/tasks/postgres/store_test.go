package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/tasks"
)

func TestUpdateQuery_ComparesVersion(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	sql, args, err := updateQuery(&tasks.Task{
		ID:        id,
		State:     tasks.Failed,
		Message:   "boom",
		Version:   3,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE tasks SET state = $1, message = $2, resource_id = $3, resource_link = $4, version = $5, updated_at = $6 WHERE id = $7 AND version = $8",
		sql)
	assert.Equal(t, []any{"FAILED", "boom", "", "", int64(4), now, id.String(), int64(3)}, args)
}

func TestInsertQuery(t *testing.T) {
	t.Parallel()
	id := uuid.New()

	sql, args, err := insertQuery(&tasks.Task{ID: id, State: tasks.Running, Version: 1})
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO tasks (id,state,message,resource_id,resource_link,version,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)",
		sql)
	assert.Len(t, args, 8)
	assert.Equal(t, id.String(), args[0])
	assert.Equal(t, "RUNNING", args[1])
}

func TestSelectQuery(t *testing.T) {
	t.Parallel()
	sql, _, err := selectQuery().OrderBy("created_at", "id").ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, state, message, resource_id, resource_link, version, created_at, updated_at FROM tasks ORDER BY created_at, id",
		sql)
}

// fakeDB records statements and answers with canned results.
type fakeDB struct {
	execTag  pgconn.CommandTag
	execErr  error
	row      pgx.Row
	lastSQL  string
	execSQLs []string
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execSQLs = append(f.execSQLs, sql)
	return f.execTag, f.execErr
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.lastSQL = sql
	return f.row
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type taskRow struct{ t tasks.Task }

func (r taskRow) Scan(dest ...any) error {
	*dest[0].(*string) = r.t.ID.String()
	*dest[1].(*string) = string(r.t.State)
	*dest[2].(*string) = r.t.Message
	*dest[3].(*string) = r.t.ResourceID
	*dest[4].(*string) = r.t.ResourceLink
	*dest[5].(*int64) = r.t.Version
	*dest[6].(*time.Time) = r.t.CreatedAt
	*dest[7].(*time.Time) = r.t.UpdatedAt
	return nil
}

func TestStore_GetNotFound(t *testing.T) {
	t.Parallel()
	s := New(&fakeDB{row: errRow{err: pgx.ErrNoRows}})

	_, err := s.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestStore_Get(t *testing.T) {
	t.Parallel()
	want := tasks.Task{ID: uuid.New(), State: tasks.Succeeded, ResourceID: "c-1", Version: 4}
	s := New(&fakeDB{row: taskRow{t: want}})

	got, err := s.Get(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, tasks.Succeeded, got.State)
	assert.Equal(t, "c-1", got.ResourceID)
	assert.Equal(t, int64(4), got.Version)
}

func TestStore_UpdateConflict(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	db := &fakeDB{
		execTag: pgconn.NewCommandTag("UPDATE 0"),
		row:     taskRow{t: tasks.Task{ID: id, State: tasks.Running, Version: 5}},
	}
	s := New(db)

	task := &tasks.Task{ID: id, State: tasks.Running, Version: 4}
	err := s.Update(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errdefs.IsConflict(err))
	assert.Equal(t, int64(4), task.Version)
}

func TestStore_UpdateMissing(t *testing.T) {
	t.Parallel()
	db := &fakeDB{
		execTag: pgconn.NewCommandTag("UPDATE 0"),
		row:     errRow{err: pgx.ErrNoRows},
	}
	s := New(db)

	err := s.Update(context.Background(), &tasks.Task{ID: uuid.New(), Version: 1})
	assert.True(t, errdefs.IsNotFound(err))
}

func TestStore_UpdateBumpsVersion(t *testing.T) {
	t.Parallel()
	s := New(&fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")})

	task := &tasks.Task{ID: uuid.New(), Version: 2}
	require.NoError(t, s.Update(context.Background(), task))
	assert.Equal(t, int64(3), task.Version)
}

func TestStore_InsertDuplicate(t *testing.T) {
	t.Parallel()
	s := New(&fakeDB{execErr: &pgconn.PgError{Code: "23505", ConstraintName: "tasks_pkey"}})

	err := s.Insert(context.Background(), &tasks.Task{ID: uuid.New()})
	assert.True(t, errdefs.IsConflict(err))
}

func TestStore_WithTracker(t *testing.T) {
	t.Parallel()
	// The tracker drives the store through the same CAS contract as the memory store.
	s := New(&fakeDB{execTag: pgconn.NewCommandTag("INSERT 0 1")})
	tr := tasks.NewTracker(s)

	task, err := tr.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), task.Version)
}
