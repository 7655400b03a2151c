package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// SnapshotRow is one stored world dump.
type SnapshotRow struct {
	ID        int64
	WorldName string
	Tick      uint64
	Digest    string
	Dump      string
	CreatedAt time.Time
}

// SnapshotRepo stores textual world dumps, one row per distinct state.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save stores dump for worldName at tick. It returns false when a snapshot
// with the same digest is already stored.
func (r *SnapshotRepo) Save(ctx context.Context, worldName string, tick uint64, dump string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`INSERT INTO world_snapshots (world_name, tick, digest, dump)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (world_name, digest) DO NOTHING`,
		worldName, int64(tick), Digest(dump), dump,
	)
	if err != nil {
		return false, fmt.Errorf("save snapshot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Latest returns the most recent snapshot of worldName, or nil if none.
func (r *SnapshotRepo) Latest(ctx context.Context, worldName string) (*SnapshotRow, error) {
	var s SnapshotRow
	var tick int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, world_name, tick, digest, dump, created_at
		 FROM world_snapshots WHERE world_name = $1
		 ORDER BY tick DESC, id DESC LIMIT 1`,
		worldName,
	).Scan(&s.ID, &s.WorldName, &tick, &s.Digest, &s.Dump, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	s.Tick = uint64(tick)
	return &s, nil
}
