package pinstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Its-donkey/dynamix-mint/internal/config"
)

func TestSumIsDeterministicCIDv1(t *testing.T) {
	first, err := Sum([]byte("hello world"))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	second, _ := Sum([]byte("hello world"))
	if first != second {
		t.Fatalf("expected stable identifiers, got %s and %s", first, second)
	}
	if !strings.HasPrefix(first, "bafkrei") {
		t.Fatalf("expected base32 raw CIDv1, got %s", first)
	}
	other, _ := Sum([]byte("hello world!"))
	if other == first {
		t.Fatalf("expected different content to yield a different identifier")
	}
}

func TestNormalize(t *testing.T) {
	id, _ := Sum([]byte("card"))
	got, err := Normalize(strings.ToUpper(id))
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s, %v", id, got, err)
	}
	if _, err := Normalize("not-a-cid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for garbage, got %v", err)
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	id, err := Pin(ctx, store, "image/png", []byte("\x89PNG\r\n\x1a\n"))
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	again, err := Pin(ctx, store, "image/png", []byte("\x89PNG\r\n\x1a\n"))
	if err != nil || again != id {
		t.Fatalf("expected idempotent pin, got %s, %v", again, err)
	}

	obj, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if obj.ContentType != "image/png" || string(obj.Data) != "\x89PNG\r\n\x1a\n" || obj.CID != id {
		t.Fatalf("unexpected object %+v", obj)
	}
	if obj.CreatedAt.IsZero() {
		t.Fatalf("expected created time to be kept")
	}

	if _, err := store.Get(ctx, "bafkreimissing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)
	if store.Len() != 1 {
		t.Fatalf("expected 1 object, got %d", store.Len())
	}
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemoryStore()
	data := []byte("abc")
	store.Put(context.Background(), Object{CID: "x", Data: data})
	data[0] = 'z'
	obj, _ := store.Get(context.Background(), "x")
	if string(obj.Data) != "abc" {
		t.Fatalf("expected stored copy to be independent, got %q", obj.Data)
	}
}

func TestBadgerStoreInMemory(t *testing.T) {
	store, err := OpenBadger(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenBadger(ctx, dir, nil)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	id, err := Pin(ctx, store, "application/json", []byte(`{"name":"Test Player"}`))
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenBadger(ctx, dir, nil)
	if err != nil {
		t.Fatalf("reopen badger: %v", err)
	}
	defer reopened.Close()
	obj, err := reopened.Get(ctx, id)
	if err != nil || obj.ContentType != "application/json" {
		t.Fatalf("expected persisted object, got %+v, %v", obj, err)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.UploadServerConfig{Store: config.StoreMemory}, nil)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	store, err = Open(ctx, config.UploadServerConfig{Store: config.StoreBadger, BadgerDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	if _, ok := store.(*BadgerStore); !ok {
		t.Fatalf("expected badger store, got %T", store)
	}
	store.Close()

	if _, err := Open(ctx, config.UploadServerConfig{Store: "s3"}, nil); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

// Set DYNAMIX_TEST_POSTGRES_DSN to run against a real database.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DYNAMIX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DYNAMIX_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}
