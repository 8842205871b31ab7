package sqldb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/example/flowide/internal/domain"
	"github.com/example/flowide/internal/observability"
	"github.com/example/flowide/internal/storage"
	"github.com/example/flowide/internal/wire"
)

func newTestStore(t *testing.T) (*Store, *observability.Metrics) {
	t.Helper()

	metrics := observability.NewMetrics()
	dbPath := filepath.Join(t.TempDir(), "flowide_test.db")

	store, err := NewSQLite(dbPath, WithMetrics(metrics))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store, metrics
}

func flowRecord(name, description string) *storage.Record {
	return &storage.Record{
		Key: storage.Key{Workspace: "global", Scope: domain.ScopeFlow, Name: name},
		Doc: wire.NewObject().Set("Label", name).Set("Description", description),
	}
}

// inTx runs fn in a transaction and commits it.
func inTx(t *testing.T, s *Store, fn func(storage.DocumentRepository) error) error {
	t.Helper()
	ctx := context.Background()
	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer uow.Rollback()

	if err := fn(uow.Documents()); err != nil {
		return err
	}
	return uow.Commit()
}

func TestCreateAndGet(t *testing.T) {
	s, metrics := newTestStore(t)
	ctx := context.Background()

	rec := flowRecord("f1", "first")
	if err := inTx(t, s, func(docs storage.DocumentRepository) error { return docs.Create(ctx, rec) }); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Revision != 1 {
		t.Errorf("revision after create = %d, want 1", rec.Revision)
	}

	var got *storage.Record
	err := inTx(t, s, func(docs storage.DocumentRepository) error {
		var err error
		got, err = docs.Get(ctx, rec.Key)
		return err
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Key != rec.Key {
		t.Errorf("key = %v, want %v", got.Key, rec.Key)
	}
	if keys := got.Doc.Keys(); len(keys) != 2 || keys[0] != "Label" || keys[1] != "Description" {
		t.Errorf("document keys = %v, want [Label Description]", keys)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Errorf("timestamps not stored: %+v", got)
	}

	if n := metrics.DBQueryDuration().Snapshot()["get"].Count; n != 1 {
		t.Errorf("get query observations = %d, want 1", n)
	}
	if active := metrics.DBActiveTransactions().Get(); active != 0 {
		t.Errorf("active transactions = %d, want 0", active)
	}
}

func TestCreateDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := inTx(t, s, func(docs storage.DocumentRepository) error {
		return docs.Create(ctx, flowRecord("f1", ""))
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := inTx(t, s, func(docs storage.DocumentRepository) error {
		return docs.Create(ctx, flowRecord("f1", ""))
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("second create error = %v, want ErrAlreadyExists", err)
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(t)
	err := inTx(t, s, func(docs storage.DocumentRepository) error {
		_, err := docs.Get(context.Background(), storage.Key{Workspace: "global", Scope: "Flow", Name: "nope"})
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestOptimisticUpdate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec := flowRecord("f1", "v1")
	if err := inTx(t, s, func(docs storage.DocumentRepository) error { return docs.Create(ctx, rec) }); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale := *rec
	rec.Doc.Set("Description", "v2")
	if err := inTx(t, s, func(docs storage.DocumentRepository) error { return docs.Update(ctx, rec) }); err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.Revision != 2 {
		t.Errorf("revision after update = %d, want 2", rec.Revision)
	}

	err := inTx(t, s, func(docs storage.DocumentRepository) error { return docs.Update(ctx, &stale) })
	if !errors.Is(err, domain.ErrConcurrentModify) {
		t.Fatalf("stale update error = %v, want ErrConcurrentModify", err)
	}

	var got *storage.Record
	inTx(t, s, func(docs storage.DocumentRepository) error {
		var err error
		got, err = docs.Get(ctx, rec.Key)
		return err
	})
	if d, _ := wire.String(got.Doc.Value("Description")); d != "v2" {
		t.Errorf("description = %q, want v2", d)
	}
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	rec := flowRecord("f1", "")
	inTx(t, s, func(docs storage.DocumentRepository) error { return docs.Create(ctx, rec) })

	if err := inTx(t, s, func(docs storage.DocumentRepository) error { return docs.Delete(ctx, rec.Key) }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err := inTx(t, s, func(docs storage.DocumentRepository) error { return docs.Delete(ctx, rec.Key) })
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestRollbackDiscards(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := uow.Documents().Create(ctx, flowRecord("f1", "")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := uow.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	err = inTx(t, s, func(docs storage.DocumentRepository) error {
		_, err := docs.Get(ctx, flowRecord("f1", "").Key)
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error after rollback = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	recs := []*storage.Record{
		flowRecord("beta", ""),
		flowRecord("alpha", ""),
		flowRecord("alpine", ""),
		{Key: storage.Key{Workspace: "global", Scope: domain.ScopeNode, Name: "n1"}, Doc: wire.NewObject().Set("Label", "n1")},
		{Key: storage.Key{Workspace: "lab", Scope: domain.ScopeFlow, Name: "other"}, Doc: wire.NewObject().Set("Label", "other")},
	}
	if err := inTx(t, s, func(docs storage.DocumentRepository) error {
		for _, rec := range recs {
			if err := docs.Create(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name string
		opts storage.ListOptions
		want []string
	}{
		{"all", storage.ListOptions{}, []string{"alpha", "alpine", "beta", "n1", "other"}},
		{"scope", storage.ListOptions{Workspace: "global", Scope: domain.ScopeFlow}, []string{"alpha", "alpine", "beta"}},
		{"prefix", storage.ListOptions{Scope: domain.ScopeFlow, Prefix: "alp"}, []string{"alpha", "alpine"}},
		{"limit", storage.ListOptions{Scope: domain.ScopeFlow, Limit: 2}, []string{"alpha", "alpine"}},
		{"offset", storage.ListOptions{Workspace: "global", Scope: domain.ScopeFlow, Offset: 1}, []string{"alpine", "beta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []*storage.Record
			err := inTx(t, s, func(docs storage.DocumentRepository) error {
				var err error
				got, err = docs.List(ctx, tt.opts)
				return err
			})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var names []string
			for _, rec := range got {
				names = append(names, rec.Name)
			}
			if len(names) != len(tt.want) {
				t.Fatalf("names = %v, want %v", names, tt.want)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Errorf("names = %v, want %v", names, tt.want)
					break
				}
			}
		})
	}
}

func TestRebind(t *testing.T) {
	pg, _ := dialectFor(DriverPostgres)
	got := pg.rebind("SELECT ? FROM t WHERE a = ? AND b = ?")
	if want := "SELECT $1 FROM t WHERE a = $2 AND b = $3"; got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	lite, _ := dialectFor(DriverSQLite)
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind changed the query: %q", got)
	}
	if _, err := dialectFor("mysql"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
