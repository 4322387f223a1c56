package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrDocumentNotFound indicates the document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// ErrDocumentExists indicates Create found a document already at the path.
var ErrDocumentExists = errors.New("document already exists")

// Get returns the document at ref.
func (db *DB) Get(ctx context.Context, ref Ref) (Document, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, ref.Path()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	return decode(raw)
}

// Update applies patch to an existing document in a single transaction:
// either every field is written or none is. Fields not named in the patch
// are left untouched.
func (db *DB) Update(ctx context.Context, ref Ref, patch Patch) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, ref.Path()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("querying document: %w", err)
	}

	doc, err := decode(raw)
	if err != nil {
		return err
	}

	now := db.now()
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := setPath(doc, k, patch[k], now); err != nil {
			return fmt.Errorf("applying field %s: %w", k, err)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE path = ?
	`, string(data), ref.Path())
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Set writes data at ref, creating the document if needed. Without Merge the
// document is replaced; with Merge nested maps are merged into what is
// stored.
func (db *DB) Set(ctx context.Context, ref Ref, data Document, opts SetOptions) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := db.now()
	doc := make(map[string]any)

	if opts.Merge {
		var raw string
		err = tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, ref.Path()).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("querying document: %w", err)
		default:
			if doc, err = decode(raw); err != nil {
				return err
			}
		}
	}

	if err := mergeInto(doc, data, now); err != nil {
		return fmt.Errorf("resolving document: %w", err)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (path, collection, doc_id, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, ref.Path(), ref.Collection, ref.ID, string(encoded))
	if err != nil {
		return fmt.Errorf("writing document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Create writes a new document. Returns ErrDocumentExists if ref is taken.
func (db *DB) Create(ctx context.Context, ref Ref, data Document) error {
	doc := make(map[string]any)
	if err := mergeInto(doc, data, db.now()); err != nil {
		return fmt.Errorf("resolving document: %w", err)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO documents (path, collection, doc_id, data) VALUES (?, ?, ?, ?)
	`, ref.Path(), ref.Collection, ref.ID, string(encoded))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDocumentExists
		}
		return fmt.Errorf("creating document: %w", err)
	}
	return nil
}

// List returns the documents of a collection, most recently written first.
// A non-empty statusCode restricts the result to documents carrying it.
func (db *DB) List(ctx context.Context, collection, statusCode string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT doc_id, data, updated_at
		FROM documents
		WHERE collection = ? AND (? = '' OR json_extract(data, '$.statusCode') = ?)
		ORDER BY updated_at DESC, doc_id ASC
		LIMIT ?
	`, collection, statusCode, statusCode, limit)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		var (
			id        string
			raw       string
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{
			Ref:       Ref{Collection: collection, ID: id},
			Data:      doc,
			UpdatedAt: updatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return out, nil
}

func decode(raw string) (Document, error) {
	doc := make(Document)
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}

// isUniqueViolation reports whether err is SQLite's unique or primary key
// violation. Other constraint failures are not taken as an existing document.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
