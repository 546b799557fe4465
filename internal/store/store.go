// Package store persists the stage cache and run history in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/maria2021831011/NoteWhisper/internal/cache"
	"github.com/maria2021831011/NoteWhisper/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
	PRAGMA busy_timeout       = 10000;
	PRAGMA journal_mode       = WAL;
	PRAGMA journal_size_limit = 200000000;
	PRAGMA synchronous        = NORMAL;
	PRAGMA foreign_keys       = ON;
	PRAGMA temp_store         = MEMORY;
	PRAGMA cache_size         = -16000;

	create table if not exists stage_cache (
		key        text primary key not null,
		value      blob not null,
		created_at integer not null
	);

	create table if not exists runs (
		id         text primary key not null,
		command    text not null,
		audio_path text not null,
		audio_hash text not null,
		state      text not null,
		created_at integer not null,
		run        blob not null
	);

	create index if not exists runs_audio_hash on runs (audio_hash);`

// DB is a SQLite database holding the stage cache and run history.
type DB struct {
	db  *sql.DB
	ttl time.Duration
}

var _ cache.Cache = (*DB)(nil)

// Open opens or creates the database at path. Cache entries older than ttl
// are treated as missing; a zero ttl keeps them forever.
func Open(path string, ttl time.Duration) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &DB{db: db, ttl: ttl}, nil
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value     []byte
		createdAt int64
	)
	err := s.db.
		QueryRowContext(ctx, "select value, created_at from stage_cache where key = $1", key).
		Scan(&value, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	if s.ttl > 0 && time.Since(time.Unix(createdAt, 0)) > s.ttl {
		return nil, cache.ErrMiss
	}
	return value, nil
}

func (s *DB) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		insert into stage_cache (key, value, created_at) values ($1, $2, $3)
		on conflict (key) do update set value = excluded.value, created_at = excluded.created_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID        string
	Command   string
	AudioPath string
	AudioHash string
	State     model.State
	CreatedAt time.Time
}

// SaveRun inserts or replaces run.
func (s *DB) SaveRun(ctx context.Context, run *model.PipelineRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	var path, hash string
	if run.Audio != nil {
		path, hash = run.Audio.Path, run.Audio.Hash
	}
	_, err = s.db.ExecContext(ctx, `
		insert into runs (id, command, audio_path, audio_hash, state, created_at, run)
		values ($1, $2, $3, $4, $5, $6, $7)
		on conflict (id) do update set
			audio_path = excluded.audio_path,
			audio_hash = excluded.audio_hash,
			state = excluded.state,
			run = excluded.run`,
		run.ID, run.Command, path, hash, string(run.State), run.CreatedAt.Unix(), data)
	if err != nil {
		return fmt.Errorf("persisting run into sqlite: %w", err)
	}
	return nil
}

// GetRun loads a saved run.
func (s *DB) GetRun(ctx context.Context, id string) (*model.PipelineRun, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "select run from runs where id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var run model.PipelineRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first, at most limit of them.
func (s *DB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, command, audio_path, audio_hash, state, created_at
		from runs order by created_at desc, id limit $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r         RunSummary
			state     string
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.Command, &r.AudioPath, &r.AudioHash, &state, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.State = model.State(state)
		r.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}
