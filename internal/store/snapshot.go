package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/simtree/internal/ir"
)

// ErrNotFound is returned when a snapshot id does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is a stored record instance. Record is nil in listings.
type Snapshot struct {
	ID          string
	Seq         int64
	RecordType  string
	MetadataKey string
	ContentHash string
	Label       string
	Record      *ir.Record
}

// SaveSnapshot stores rec and returns the new snapshot's id.
// The record's type must be registered: the metadata key comes from the
// registry's flatten.
func (s *Store) SaveSnapshot(ctx context.Context, rec *ir.Record, label string) (string, error) {
	_, meta, err := s.reg.Flatten(rec)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	body, err := marshalBody(rec)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	id := s.ids.Generate()
	seq := s.clock.Next()
	hash := ir.ContentHash(ir.DomainSnapshot, []byte(body))

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(id, seq, record_type, metadata_key, content_hash, label, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		seq,
		rec.Type().Name,
		meta.Key(),
		hash,
		label,
		body,
	)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	slog.Debug("snapshot saved",
		"id", id,
		"seq", seq,
		"record", rec.Type().Name,
	)
	return id, nil
}

// LoadSnapshot reads a snapshot and decodes its record.
// Returns ErrNotFound if no snapshot has the id.
func (s *Store) LoadSnapshot(ctx context.Context, id string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, record_type, metadata_key, content_hash, label, body
		FROM snapshots
		WHERE id = ?
	`, id)

	var snap Snapshot
	var body string
	err := row.Scan(&snap.ID, &snap.Seq, &snap.RecordType, &snap.MetadataKey, &snap.ContentHash, &snap.Label, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}

	if got := ir.ContentHash(ir.DomainSnapshot, []byte(body)); got != snap.ContentHash {
		return Snapshot{}, fmt.Errorf("load snapshot %s: content hash mismatch", id)
	}
	if snap.Record, err = unmarshalBody(body, s.reg); err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return snap, nil
}

// ListSnapshots returns snapshot headers for a record type, or for every
// type when recordType is empty, ordered by seq.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListSnapshots(ctx context.Context, recordType string) ([]Snapshot, error) {
	var p Predicate
	if recordType != "" {
		p = Equals{Column: ColRecordType, Value: recordType}
	}
	return s.Search(ctx, p)
}

// FindByMetadataKey returns headers of every snapshot whose static metadata
// hashes to key, ordered by seq.
func (s *Store) FindByMetadataKey(ctx context.Context, key string) ([]Snapshot, error) {
	return s.Search(ctx, Equals{Column: ColMetadataKey, Value: key})
}

func scanHeaders(rows *sql.Rows) ([]Snapshot, error) {
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.Seq, &snap.RecordType, &snap.MetadataKey, &snap.ContentHash, &snap.Label); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}
