package memory

import (
	"context"
	"testing"
	"time"

	"github.com/vinayprograms/reverie/errors"
)

func TestInMemoryStore_SaveListGet(t *testing.T) {
	store := NewInMemoryStore(nil)
	store.now = steppingClock()
	ctx := context.Background()

	var keys []string
	for _, p := range []string{"one", "two", "three"} {
		key, err := store.Save(ctx, &Record{Prompt: p, Tags: []string{"x"}})
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, key)
	}
	if store.Len() != 3 {
		t.Fatalf("Len = %d", store.Len())
	}

	entries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Record.Prompt != "three" || entries[1].Record.Prompt != "two" {
		t.Errorf("unexpected List result: %+v", entries)
	}

	entry, err := store.Get(ctx, keys[0])
	if err != nil {
		t.Fatal(err)
	}
	if entry.Record.Prompt != "one" || entry.Record.Source != DefaultSource {
		t.Errorf("unexpected Get result: %+v", entry)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()

	rec := &Record{Prompt: "p", Tags: []string{"keep"}}
	key, err := store.Save(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}
	rec.Tags[0] = "mutated"

	entry, _ := store.Get(ctx, key)
	if entry.Record.Tags[0] != "keep" {
		t.Error("store should not alias the caller's record")
	}
	entry.Record.Tags[0] = "again"

	all, _ := store.ScanAll(ctx)
	if all[0].Record.Tags[0] != "keep" {
		t.Error("store should not alias returned entries")
	}
}

func TestInMemoryStore_ScanAllEmpty(t *testing.T) {
	entries, err := NewInMemoryStore(nil).ScanAll(context.Background())
	if err != nil || entries == nil || len(entries) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v, %v", entries, err)
	}
}

func TestInMemoryStore_FrozenClock(t *testing.T) {
	frozen := func() time.Time { return baseTime }
	ctx := context.Background()

	faithful := NewInMemoryStore(TimestampKeys{})
	faithful.now = frozen
	faithful.Save(ctx, &Record{Prompt: "a"})
	faithful.Save(ctx, &Record{Prompt: "b"})
	if faithful.Len() != 1 {
		t.Errorf("timestamp keys: expected 1 survivor, got %d", faithful.Len())
	}

	unique := NewInMemoryStore(nil)
	unique.now = frozen
	unique.Save(ctx, &Record{Prompt: "a"})
	unique.Save(ctx, &Record{Prompt: "b"})
	if unique.Len() != 2 {
		t.Errorf("unique keys: expected 2 entries, got %d", unique.Len())
	}
}

func TestInMemoryStore_Close(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()
	store.Save(ctx, &Record{Prompt: "before"})

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(ctx, &Record{Prompt: "after"}); !errors.Is(err, errors.ErrCodeUnavailable) {
		t.Errorf("expected UNAVAILABLE after close, got %v", err)
	}
	if entries, err := store.ScanAll(ctx); err != nil || len(entries) != 1 {
		t.Errorf("reads should keep working after close: %v, %v", entries, err)
	}
}

var _ Store = (*InMemoryStore)(nil)
var _ Store = (*FileStore)(nil)
