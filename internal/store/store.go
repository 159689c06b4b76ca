// Package store caches finished transcripts in SQLite, keyed by the BLAKE3
// hash of the input file together with the model and policy that produced
// them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tiroq/scribe/internal/asr"
)

// connParams are applied by the driver to every pooled connection.
const connParams = "_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"

const schema = `
create table if not exists transcripts (
	id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
	blake3_hash text not null,
	model text not null,
	policy text not null,
	name text not null,
	duration real not null,
	created_at text not null,
	unique (blake3_hash, model, policy)
);

create table if not exists segments (
	transcript_id integer not null references transcripts(id) on delete cascade,
	idx integer not null,
	start_s real not null,
	end_s real not null,
	text text not null,
	primary key (transcript_id, idx)
);`

// Key identifies one cached transcript.
type Key struct {
	InputHash string
	Model     string
	Policy    string // asr.Fingerprint of the policy, not just its name
}

// Store is a SQLite-backed transcript cache. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?"+connParams)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached transcript for key. ok is false on a miss.
func (s *Store) Get(ctx context.Context, key Key) (t *asr.Transcript, ok bool, err error) {
	var (
		id       int64
		duration float64
	)
	err = s.db.QueryRowContext(ctx,
		"select id, duration from transcripts where blake3_hash = $1 and model = $2 and policy = $3",
		key.InputHash, key.Model, key.Policy,
	).Scan(&id, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get transcript by hash: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"select start_s, end_s, text from segments where transcript_id = $1 order by idx",
		id,
	)
	if err != nil {
		return nil, false, fmt.Errorf("get segments: %w", err)
	}
	defer rows.Close()

	var segs []asr.Segment
	for rows.Next() {
		var seg asr.Segment
		if err := rows.Scan(&seg.Start, &seg.End, &seg.Text); err != nil {
			return nil, false, fmt.Errorf("scanning segment: %w", err)
		}
		segs = append(segs, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("reading segments: %w", err)
	}

	return asr.NewTranscript(segs, duration, key.Model, key.Policy), true, nil
}

// Put stores t under key, replacing any previous entry. name is the input
// file name, kept for inspection.
func (s *Store) Put(ctx context.Context, key Key, name string, t *asr.Transcript) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put transcript: begin trx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		insert into transcripts (blake3_hash, model, policy, name, duration, created_at)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (blake3_hash, model, policy) do update set
			name = excluded.name,
			duration = excluded.duration,
			created_at = excluded.created_at
		returning id`,
		key.InputHash, key.Model, key.Policy, name, t.Duration, time.Now().UTC().Format(time.RFC3339),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("persisting transcript into sqlite: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "delete from segments where transcript_id = $1", id); err != nil {
		return fmt.Errorf("clearing old segments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"insert into segments (transcript_id, idx, start_s, end_s, text) values ($1, $2, $3, $4, $5)")
	if err != nil {
		return fmt.Errorf("preparing segment insert: %w", err)
	}
	defer stmt.Close()
	for i, seg := range t.Segments {
		if _, err := stmt.ExecContext(ctx, id, i, seg.Start, seg.End, seg.Text); err != nil {
			return fmt.Errorf("inserting segment %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put transcript: committing: %w", err)
	}
	return nil
}

// Count returns the number of cached transcripts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "select count(*) from transcripts").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transcripts: %w", err)
	}
	return n, nil
}
