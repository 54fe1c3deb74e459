package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Entry is the manifest record of one emitted unit.
type Entry struct {
	Identity    string `json:"identity"`
	Generator   string `json:"generator"`
	ContentHash string `json:"content_hash"`
	Size        int64  `json:"size"`
	Failed      bool   `json:"failed,omitempty"`
	PassToken   string `json:"pass_token"`
	Seq         int64  `json:"seq"`
}

// Pass is the manifest record of one generation pass.
type Pass struct {
	Token            string `json:"token"`
	Seq              int64  `json:"seq"`
	GeneratorVersion string `json:"generator_version"`
	FactVersion      string `json:"fact_version"`
	Facts            int    `json:"facts"`
	Malformed        int    `json:"malformed"`
	Units            int    `json:"units"`
	Changed          int    `json:"changed"`
	Removed          int    `json:"removed"`
	Rendered         int    `json:"rendered"`
	Hits             int    `json:"hits"`
	Failures         int    `json:"failures"`
}

// PutUnit records that a unit was written. The row for the identity is
// replaced.
func (s *Store) PutUnit(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO units (identity, generator, content_hash, size, failed, pass_token, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			generator = excluded.generator,
			content_hash = excluded.content_hash,
			size = excluded.size,
			failed = excluded.failed,
			pass_token = excluded.pass_token,
			seq = excluded.seq
	`, e.Identity, e.Generator, e.ContentHash, e.Size, e.Failed, e.PassToken, e.Seq)
	if err != nil {
		return fmt.Errorf("put unit %s: %w", e.Identity, err)
	}
	return nil
}

// DeleteUnit forgets a unit. Deleting an unknown identity is not an error.
func (s *Store) DeleteUnit(ctx context.Context, identity string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM units WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("delete unit %s: %w", identity, err)
	}
	return nil
}

// Unit returns the manifest entry for identity.
func (s *Store) Unit(ctx context.Context, identity string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, generator, content_hash, size, failed, pass_token, seq
		FROM units WHERE identity = ?
	`, identity)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read unit %s: %w", identity, err)
	}
	return e, true, nil
}

// Units returns every manifest entry ordered by identity.
// Returns an empty slice (not nil) for an empty manifest.
func (s *Store) Units(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, generator, content_hash, size, failed, pass_token, seq
		FROM units
		ORDER BY identity COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	err := row.Scan(&e.Identity, &e.Generator, &e.ContentHash, &e.Size, &e.Failed, &e.PassToken, &e.Seq)
	return e, err
}

// RecordPass writes a pass record. A token is recorded at most once;
// repeats are ignored.
func (s *Store) RecordPass(ctx context.Context, p Pass) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO passes
		(token, seq, generator_version, fact_version, facts, malformed, units, changed, removed, rendered, hits, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`, p.Token, p.Seq, p.GeneratorVersion, p.FactVersion,
		p.Facts, p.Malformed, p.Units, p.Changed, p.Removed, p.Rendered, p.Hits, p.Failures)
	if err != nil {
		return fmt.Errorf("record pass %s: %w", p.Token, err)
	}
	return nil
}

// Passes returns every pass record ordered by seq.
func (s *Store) Passes(ctx context.Context) ([]Pass, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, seq, generator_version, fact_version, facts, malformed, units, changed, removed, rendered, hits, failures
		FROM passes
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []Pass{}
	for rows.Next() {
		var p Pass
		if err := rows.Scan(&p.Token, &p.Seq, &p.GeneratorVersion, &p.FactVersion,
			&p.Facts, &p.Malformed, &p.Units, &p.Changed, &p.Removed, &p.Rendered, &p.Hits, &p.Failures); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// LastSeq returns the highest recorded pass sequence, or 0.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM passes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}
