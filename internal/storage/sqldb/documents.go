package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/flowide/internal/domain"
	"github.com/example/flowide/internal/storage"
	"github.com/example/flowide/internal/wire"
)

type documentRepo struct {
	tx    *sql.Tx
	store *Store
}

func (r *documentRepo) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.tx.ExecContext(ctx, r.store.dialect.rebind(query), args...)
}

func (r *documentRepo) Create(ctx context.Context, rec *storage.Record) error {
	defer r.store.observe("create", time.Now())

	docJSON, err := json.Marshal(rec.Doc)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Revision = 1

	_, err = r.exec(ctx, `
		INSERT INTO documents (workspace, scope, name, doc_json, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Workspace, rec.Scope, rec.Name, string(docJSON), rec.Revision, rec.CreatedAt, rec.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", rec.Key, domain.ErrAlreadyExists)
	}
	return err
}

func (r *documentRepo) Get(ctx context.Context, key storage.Key) (*storage.Record, error) {
	defer r.store.observe("get", time.Now())

	row := r.tx.QueryRowContext(ctx, r.store.dialect.rebind(`
		SELECT workspace, scope, name, doc_json, revision, created_at, updated_at
		FROM documents WHERE workspace = ? AND scope = ? AND name = ?
	`), key.Workspace, key.Scope, key.Name)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	return rec, err
}

func (r *documentRepo) Update(ctx context.Context, rec *storage.Record) error {
	defer r.store.observe("update", time.Now())

	docJSON, err := json.Marshal(rec.Doc)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	result, err := r.exec(ctx, `
		UPDATE documents
		SET doc_json = ?, updated_at = ?, revision = revision + 1
		WHERE workspace = ? AND scope = ? AND name = ? AND revision = ?
	`, string(docJSON), now, rec.Workspace, rec.Scope, rec.Name, rec.Revision)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s at revision %d: %w", rec.Key, rec.Revision, domain.ErrConcurrentModify)
	}

	rec.Revision++
	rec.UpdatedAt = now
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, key storage.Key) error {
	defer r.store.observe("delete", time.Now())

	result, err := r.exec(ctx, `
		DELETE FROM documents WHERE workspace = ? AND scope = ? AND name = ?
	`, key.Workspace, key.Scope, key.Name)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (r *documentRepo) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Record, error) {
	defer r.store.observe("list", time.Now())

	var (
		conds []string
		args  []any
	)
	if opts.Workspace != "" {
		conds = append(conds, "workspace = ?")
		args = append(args, opts.Workspace)
	}
	if opts.Scope != "" {
		conds = append(conds, "scope = ?")
		args = append(args, opts.Scope)
	}
	if opts.Prefix != "" {
		conds = append(conds, "substr(name, 1, ?) = ?")
		args = append(args, len(opts.Prefix), opts.Prefix)
	}

	query := `SELECT workspace, scope, name, doc_json, revision, created_at, updated_at FROM documents`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY workspace, scope, name"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			// SQLite requires a LIMIT before OFFSET
			query += " LIMIT -1"
			if r.store.dialect.numbered {
				query = strings.TrimSuffix(query, " LIMIT -1") + " LIMIT ALL"
			}
		}
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.tx.QueryContext(ctx, r.store.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*storage.Record, error) {
	rec := &storage.Record{}
	var docJSON string
	err := row.Scan(&rec.Workspace, &rec.Scope, &rec.Name, &docJSON, &rec.Revision,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if rec.Doc, err = wire.ParseObject([]byte(docJSON)); err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Key, err)
	}
	return rec, nil
}
