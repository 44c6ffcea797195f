package persist

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)

// SnapshotRow describes a stored snapshot without its blob.
type SnapshotRow struct {
	ID        int64
	Name      string
	Format    uint32
	Size      int
	CreatedAt time.Time
}

// SnapshotRepo keeps world snapshots in PostgreSQL. Every Save adds a row; Load
// returns the newest row of a name.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Checksum returns the BLAKE2b-256 digest stored next to each blob.
func Checksum(blob []byte) []byte {
	sum := blake2b.Sum256(blob)
	return sum[:]
}

func verify(blob, sum []byte) error {
	if !bytes.Equal(Checksum(blob), sum) {
		return ErrChecksumMismatch
	}
	return nil
}

// formatOf reads the format version that follows the magic of a world blob.
func formatOf(blob []byte) uint32 {
	if len(blob) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint32(blob[4:8])
}

func (r *SnapshotRepo) Save(ctx context.Context, name string, blob []byte) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO world_snapshots (name, format, size, checksum, blob)
		 VALUES ($1, $2, $3, $4, $5)`,
		name, int32(formatOf(blob)), len(blob), Checksum(blob), blob,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	return nil
}

// Load returns the newest blob saved under name after checking its digest.
func (r *SnapshotRepo) Load(ctx context.Context, name string) ([]byte, error) {
	var blob, sum []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT blob, checksum FROM world_snapshots
		 WHERE name = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, name,
	).Scan(&blob, &sum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	if err := verify(blob, sum); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	return blob, nil
}

// List returns the stored snapshots of name, newest first.
func (r *SnapshotRepo) List(ctx context.Context, name string) ([]SnapshotRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, format, size, created_at FROM world_snapshots
		 WHERE name = $1 ORDER BY created_at DESC, id DESC`, name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SnapshotRow
	for rows.Next() {
		var row SnapshotRow
		var format int32
		if err := rows.Scan(&row.ID, &row.Name, &format, &row.Size, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.Format = uint32(format)
		result = append(result, row)
	}
	return result, rows.Err()
}

// Prune deletes all but the newest keep snapshots of name.
func (r *SnapshotRepo) Prune(ctx context.Context, name string, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM world_snapshots WHERE name = $1 AND id NOT IN (
		     SELECT id FROM world_snapshots WHERE name = $1
		     ORDER BY created_at DESC, id DESC LIMIT $2)`,
		name, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots %s: %w", name, err)
	}
	return tag.RowsAffected(), nil
}
