// Package store archives the best genome of each generation in a SQLite
// database, so long runs keep a queryable record of progress that survives
// the process.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/baldhumanity/neatevo/neat"
)

// ErrVersionMismatch is returned when a stored record was written with an
// incompatible schema version.
var ErrVersionMismatch = errors.New("archive record version mismatch")

// BestRecord is one archived champion. Registry is the innovation registry
// state at save time, so a restored genome can keep mutating with consistent
// innovation numbering.
type BestRecord struct {
	Generation int
	Fitness    float64
	SavedAt    time.Time
	Genome     GenomeDump
	Registry   neat.RegistrySnapshot
}

// Archive is a SQLite-backed store of per-generation champions. Saving the
// same generation twice overwrites the earlier record.
type Archive struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// Open opens (creating if needed) the archive at path.
func Open(ctx context.Context, path string) (*Archive, error) {
	if path == "" {
		return nil, errors.New("archive path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Archive{path: path, db: db}, nil
}

// SaveBest archives the champion of a generation together with the
// innovation registry state at save time.
func (a *Archive) SaveBest(ctx context.Context, generation int, g *neat.Genome, snap neat.RegistrySnapshot) error {
	db, err := a.getDB()
	if err != nil {
		return err
	}

	dump := DumpGenome(g)
	payload, err := encodeDump(dump)
	if err != nil {
		return err
	}
	registry, err := EncodeRegistry(snap)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO champions (generation, schema_version, fitness, saved_at, payload, registry)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(generation) DO UPDATE SET
			schema_version = excluded.schema_version,
			fitness = excluded.fitness,
			saved_at = excluded.saved_at,
			payload = excluded.payload,
			registry = excluded.registry
	`, generation, CurrentSchemaVersion, g.Fitness, time.Now().UTC().Format(time.RFC3339Nano), payload, registry)
	return err
}

// Best returns the highest-fitness champion in the archive. The boolean is
// false when the archive is empty.
func (a *Archive) Best(ctx context.Context) (BestRecord, bool, error) {
	db, err := a.getDB()
	if err != nil {
		return BestRecord{}, false, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT generation, fitness, saved_at, payload, registry
		FROM champions
		ORDER BY fitness DESC, generation ASC
		LIMIT 1
	`)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BestRecord{}, false, nil
		}
		return BestRecord{}, false, err
	}
	return rec, true, nil
}

// Generation returns the champion archived for a specific generation.
func (a *Archive) Generation(ctx context.Context, generation int) (BestRecord, bool, error) {
	db, err := a.getDB()
	if err != nil {
		return BestRecord{}, false, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT generation, fitness, saved_at, payload, registry
		FROM champions
		WHERE generation = ?
	`, generation)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BestRecord{}, false, nil
		}
		return BestRecord{}, false, err
	}
	return rec, true, nil
}

// History returns all archived champions in generation order.
func (a *Archive) History(ctx context.Context) ([]BestRecord, error) {
	db, err := a.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT generation, fitness, saved_at, payload, registry
		FROM champions
		ORDER BY generation ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []BestRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *Archive) getDB() (*sql.DB, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.db == nil {
		return nil, errors.New("archive is closed")
	}
	return a.db, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (BestRecord, error) {
	var (
		rec      BestRecord
		savedAt  string
		payload  []byte
		registry []byte
	)
	if err := row.Scan(&rec.Generation, &rec.Fitness, &savedAt, &payload, &registry); err != nil {
		return BestRecord{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return BestRecord{}, fmt.Errorf("parse saved_at for generation %d: %w", rec.Generation, err)
	}
	rec.SavedAt = t

	dump, err := decodeDump(payload)
	if err != nil {
		return BestRecord{}, fmt.Errorf("decode champion for generation %d: %w", rec.Generation, err)
	}
	if dump.SchemaVersion != CurrentSchemaVersion {
		return BestRecord{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, dump.SchemaVersion, CurrentSchemaVersion)
	}
	rec.Genome = dump

	snap, err := DecodeRegistry(registry)
	if err != nil {
		return BestRecord{}, fmt.Errorf("decode registry for generation %d: %w", rec.Generation, err)
	}
	rec.Registry = snap
	return rec, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS champions (
			generation INTEGER PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			fitness REAL NOT NULL,
			saved_at TEXT NOT NULL,
			payload BLOB NOT NULL,
			registry BLOB NOT NULL
		);
	`)
	return err
}
