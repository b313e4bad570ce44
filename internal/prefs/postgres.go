package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps preferences in a small table of the user's own database.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens dsn with the pgx driver, checks the connection and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) ActiveBoard(ctx context.Context, roomID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `select board_public_id from active_boards where room_public_id=$1`, roomID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

func (s *PostgresStore) SetActiveBoard(ctx context.Context, roomID, boardID string) error {
	_, err := s.db.ExecContext(ctx, `
insert into active_boards(room_public_id, board_public_id, updated_at) values($1,$2,now())
on conflict (room_public_id) do update set board_public_id=excluded.board_public_id, updated_at=now()`,
		roomID, boardID)
	return err
}

func (s *PostgresStore) Forget(ctx context.Context, roomID string) error {
	_, err := s.db.ExecContext(ctx, `delete from active_boards where room_public_id=$1`, roomID)
	return err
}

const schema = `
create table if not exists active_boards (
	room_public_id text primary key,
	board_public_id text not null,
	updated_at timestamptz not null default now()
);
`
