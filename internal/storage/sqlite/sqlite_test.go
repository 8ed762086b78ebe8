package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/planner/internal/storage"
)

func TestSQLiteStore(t *testing.T) {
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "planner-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "nested", "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	t.Run("Get missing key", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "planner-notes")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ok {
			t.Error("Expected missing key to report ok=false")
		}
	})

	t.Run("Set then Get", func(t *testing.T) {
		if err := store.Set(ctx, "planner-notes", []byte(`[{"id":"n1"}]`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, ok, err := store.Get(ctx, "planner-notes")
		if err != nil || !ok {
			t.Fatalf("Get failed: ok=%v err=%v", ok, err)
		}
		if string(got) != `[{"id":"n1"}]` {
			t.Errorf("Value mismatch: got %s", got)
		}
	})

	t.Run("Set overwrites", func(t *testing.T) {
		if err := store.Set(ctx, "planner-notes", []byte(`[]`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, _, _ := store.Get(ctx, "planner-notes")
		if string(got) != `[]` {
			t.Errorf("Value mismatch after overwrite: got %s", got)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := store.Remove(ctx, "planner-notes"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if _, ok, _ := store.Get(ctx, "planner-notes"); ok {
			t.Error("Expected key to be gone after Remove")
		}
		if err := store.Remove(ctx, "planner-notes"); err != nil {
			t.Errorf("Remove of missing key should not fail: %v", err)
		}
	})
}

func TestSQLiteStoreReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Set(ctx, "planner-goals", []byte(`[]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	store.Close()

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	if _, ok, _ := reopened.Get(ctx, "planner-goals"); !ok {
		t.Error("Expected value to survive reopen")
	}
}

func TestSQLiteStoreQuota(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "test.db"), WithQuota(16))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "a", []byte("0123456789")); err != nil {
		t.Fatalf("Set within quota failed: %v", err)
	}

	err = store.Set(ctx, "b", []byte("0123456789"))
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		t.Fatalf("Expected ErrQuotaExceeded, got %v", err)
	}

	// The rejected key must not have been written.
	if _, ok, _ := store.Get(ctx, "b"); ok {
		t.Error("Rejected write should not be visible")
	}
}
