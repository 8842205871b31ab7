package storage

import (
	"context"
	"path"
	"time"

	"github.com/example/flowide/internal/wire"
)

// Key addresses a stored document.
type Key struct {
	Workspace string
	Scope     string
	Name      string
}

// String returns workspace/scope/name, the document URL.
func (k Key) String() string {
	return path.Join(k.Workspace, k.Scope, k.Name)
}

// Record is a stored wire document.
type Record struct {
	Key
	Doc *wire.Object

	// Revision starts at 1 and grows with every update. Update only
	// succeeds against the revision it was read at.
	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListOptions provides filtering options for list operations.
type ListOptions struct {
	// Workspace and Scope to filter by (empty = all)
	Workspace string
	Scope     string

	// Prefix filters by the start of the name.
	Prefix string

	// Pagination
	Limit  int
	Offset int
}

// DocumentRepository provides access to document storage.
type DocumentRepository interface {
	// Create stores a new document. It fails with domain.ErrAlreadyExists
	// when the key is taken.
	Create(ctx context.Context, rec *Record) error

	// Get retrieves a document by key.
	Get(ctx context.Context, key Key) (*Record, error)

	// Update overwrites a document, failing with domain.ErrConcurrentModify
	// when it changed since rec.Revision.
	Update(ctx context.Context, rec *Record) error

	// Delete deletes a document by key.
	Delete(ctx context.Context, key Key) error

	// List lists documents ordered by workspace, scope and name.
	List(ctx context.Context, opts ListOptions) ([]*Record, error)
}

// UnitOfWork provides transactional access to the repositories.
type UnitOfWork interface {
	Documents() DocumentRepository

	// Transaction control
	Commit() error
	Rollback() error
}

// Storage provides the main entry point for storage operations.
type Storage interface {
	// Begin starts a new transaction and returns a UnitOfWork.
	Begin(ctx context.Context) (UnitOfWork, error)

	// Close closes the storage connection.
	Close() error

	// Migrate runs database migrations.
	Migrate(ctx context.Context) error
}
