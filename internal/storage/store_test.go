package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func openStores(t *testing.T) map[string]BlobStore {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "financas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return map[string]BlobStore{
		"memory": NewMemoryStore(),
		"sqlite": repo,
	}
}

func TestBlobStore(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
			}

			if err := store.Put(ctx, "a", []byte(`[1]`)); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if err := store.Put(ctx, "a", []byte(`[1,2]`)); err != nil {
				t.Fatalf("Put() overwrite error = %v", err)
			}
			got, err := store.Get(ctx, "a")
			if err != nil || string(got) != `[1,2]` {
				t.Fatalf("Get(a) = %s, %v", got, err)
			}

			err = store.PutAll(ctx, map[string][]byte{"b": []byte(`{}`), "c": []byte(`[]`)})
			if err != nil {
				t.Fatalf("PutAll() error = %v", err)
			}
			keys, err := store.Keys(ctx)
			if err != nil {
				t.Fatalf("Keys() error = %v", err)
			}
			if want := []string{"a", "b", "c"}; !reflect.DeepEqual(keys, want) {
				t.Errorf("Keys() = %v, want %v", keys, want)
			}

			if err := store.Delete(ctx, "b"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(b) after delete error = %v", err)
			}
			if err := store.Delete(ctx, "b"); err != nil {
				t.Errorf("deleting a missing key should succeed, got %v", err)
			}
		})
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	_ = s.Put(ctx, "k", buf)
	buf[0] = 'x'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value changed through caller slice: %s", got)
	}
	got[1] = 'y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value changed through returned slice: %s", again)
	}
}

func TestSQLiteRepositoryReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "financas.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	if err := repo.Put(ctx, "financial-dividas", []byte(`[]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	repo.Close()

	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "financial-dividas")
	if err != nil || string(got) != `[]` {
		t.Errorf("Get() after reopen = %s, %v", got, err)
	}
}
