package store

import (
	"context"
	"fmt"
	"strings"
)

// Column names a filterable snapshot header column.
type Column string

const (
	ColRecordType  Column = "record_type"
	ColMetadataKey Column = "metadata_key"
	ColLabel       Column = "label"
	ColSeq         Column = "seq"
)

func (c Column) valid() bool {
	switch c {
	case ColRecordType, ColMetadataKey, ColLabel, ColSeq:
		return true
	}
	return false
}

// Predicate filters snapshot headers.
//
// This is a sealed interface: Equals, AtLeast and And are the only
// implementations.
type Predicate interface {
	predicateNode()
}

// Equals matches rows whose column equals Value.
type Equals struct {
	Column Column
	Value  any // string for text columns, int64 for seq
}

func (Equals) predicateNode() {}

// AtLeast matches rows whose integer column is >= Value.
type AtLeast struct {
	Column Column
	Value  int64
}

func (AtLeast) predicateNode() {}

// And matches rows satisfying every predicate. An empty And matches all rows.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// compileQuery converts a predicate into a parameterized header query.
// Values are never interpolated, and every query is ordered by seq with
// a binary id tiebreak.
func compileQuery(p Predicate) (string, []any, error) {
	where, params, err := compilePredicate(p)
	if err != nil {
		return "", nil, err
	}
	query := "SELECT id, seq, record_type, metadata_key, content_hash, label FROM snapshots"
	if where != "" {
		query += " WHERE " + where
	}
	return query + " ORDER BY seq ASC, id COLLATE BINARY ASC", params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil, nil
	case Equals:
		if !pred.Column.valid() {
			return "", nil, fmt.Errorf("unknown column %q", pred.Column)
		}
		if pred.Value == nil {
			return "", nil, fmt.Errorf("%s: nil value", pred.Column)
		}
		return string(pred.Column) + " = ?", []any{pred.Value}, nil
	case AtLeast:
		if pred.Column != ColSeq {
			return "", nil, fmt.Errorf("%s: AtLeast needs an integer column", pred.Column)
		}
		return string(pred.Column) + " >= ?", []any{pred.Value}, nil
	case And:
		var (
			parts  []string
			params []any
		)
		for _, sub := range pred.Predicates {
			sql, subParams, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			if sql == "" {
				continue
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// Search returns the headers of every snapshot matching p, ordered by seq.
// A nil predicate matches everything. Returns an empty slice (not nil) if
// nothing matches.
func (s *Store) Search(ctx context.Context, p Predicate) ([]Snapshot, error) {
	query, params, err := compileQuery(p)
	if err != nil {
		return nil, fmt.Errorf("search snapshots: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("search snapshots: %w", err)
	}
	return scanHeaders(rows)
}
