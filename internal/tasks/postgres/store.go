// Package postgres is a durable tasks.Store on top of PostgreSQL.
//
// Optimistic concurrency maps to a conditional UPDATE on the version column:
// zero affected rows means the row is gone or somebody else won the race.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/tasks"
)

const tasksTable = "tasks"

// Schema creates the tasks table.
const Schema = `
create table if not exists tasks (
	id            text primary key,
	state         text not null,
	message       text not null default '',
	resource_id   text not null default '',
	resource_link text not null default '',
	version       bigint not null,
	created_at    timestamptz not null,
	updated_at    timestamptz not null
);
`

var columns = []string{
	"id", "state", "message", "resource_id", "resource_link", "version", "created_at", "updated_at",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements tasks.Store.
type Store struct {
	db DB
}

var _ tasks.Store = (*Store)(nil)

// New wraps an existing connection.
func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pool for dsn, pings it and applies Schema.
func Connect(ctx context.Context, dsn string) (*Store, *pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping db: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return New(pool), pool, nil
}

// Insert implements tasks.Store.
func (s *Store) Insert(ctx context.Context, t *tasks.Task) error {
	t.Version = 1
	sql, args, err := insertQuery(t)
	if err != nil {
		return fmt.Errorf("failed to create db request: %w", err)
	}
	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errdefs.Conflictf("task %s already exists", t.ID)
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Get implements tasks.Store.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*tasks.Task, error) {
	sql, args, err := selectQuery().Where(squirrel.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to create db request: %w", err)
	}
	t, err := scanTask(s.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errdefs.NotFoundf("task %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", id, err)
	}
	return t, nil
}

// List implements tasks.Store.
func (s *Store) List(ctx context.Context) ([]*tasks.Task, error) {
	sql, args, err := selectQuery().OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to create db request: %w", err)
	}
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []*tasks.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update implements tasks.Store.
func (s *Store) Update(ctx context.Context, t *tasks.Task) error {
	sql, args, err := updateQuery(t)
	if err != nil {
		return fmt.Errorf("failed to create db request: %w", err)
	}
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, t.ID); err != nil {
			return err
		}
		return errdefs.Conflictf("task %s changed since version %d", t.ID, t.Version)
	}
	t.Version++
	return nil
}

func selectQuery() squirrel.SelectBuilder {
	return psql.Select(columns...).From(tasksTable)
}

func insertQuery(t *tasks.Task) (string, []any, error) {
	return psql.Insert(tasksTable).
		Columns(columns...).
		Values(
			t.ID.String(),
			string(t.State),
			t.Message,
			t.ResourceID,
			t.ResourceLink,
			t.Version,
			t.CreatedAt,
			t.UpdatedAt,
		).
		ToSql()
}

func updateQuery(t *tasks.Task) (string, []any, error) {
	return psql.Update(tasksTable).
		Set("state", string(t.State)).
		Set("message", t.Message).
		Set("resource_id", t.ResourceID).
		Set("resource_link", t.ResourceLink).
		Set("version", t.Version+1).
		Set("updated_at", t.UpdatedAt).
		Where(squirrel.Eq{"id": t.ID.String(), "version": t.Version}).
		ToSql()
}

func scanTask(row pgx.Row) (*tasks.Task, error) {
	var (
		t         tasks.Task
		id, state string
		created   time.Time
		updated   time.Time
	)
	if err := row.Scan(&id, &state, &t.Message, &t.ResourceID, &t.ResourceLink, &t.Version, &created, &updated); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", id, err)
	}
	t.ID = parsed
	t.State = tasks.State(state)
	t.CreatedAt = created.UTC()
	t.UpdatedAt = updated.UTC()
	return &t, nil
}
