//go:build integration

package vectorstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/log"
	"github.com/ragbase/ragbase/internal/testutil"
)

// fakeEmbed maps each text to a deterministic 1536-dim vector so nearest
// neighbor ordering is stable without an embedding service.
func fakeEmbed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, 1536)
		for j, r := range text {
			v[j%1536] += float32(r) / 1000
		}
		vectors[i] = v
	}
	return vectors, nil
}

func TestStoreLifecycle(t *testing.T) {
	pool := testutil.StartPostgres(t)
	ctx := context.Background()

	store := New(pool, fakeEmbed, log.NewNop())

	chunks := []string{"alpha rules apply", "beta rules apply"}
	if err := store.Add(ctx, "p1", "Doc-2026-0001", chunks, nil, "rules.txt"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	n, err := store.Count(ctx, "p1")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("Count() = %d, want 2", n)
	}

	// Re-adding the same document replaces rather than duplicates.
	if err := store.Add(ctx, "p1", "Doc-2026-0001", chunks, nil, "rules.txt"); err != nil {
		t.Fatalf("second Add() error = %v", err)
	}
	if n, _ = store.Count(ctx, "p1"); n != 2 {
		t.Fatalf("Count() after re-add = %d, want 2", n)
	}

	query, err := fakeEmbed(ctx, []string{"alpha rules apply"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := store.Query(ctx, "p1", query[0], 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(res.IDs) != 2 {
		t.Fatalf("got %d hits, want 2", len(res.IDs))
	}
	if res.IDs[0] != "doc_Doc-2026-0001_chunk_1" {
		t.Errorf("nearest hit = %s, want chunk 1", res.IDs[0])
	}
	if res.Distances[0] > res.Distances[1] {
		t.Errorf("distances not ascending: %v", res.Distances)
	}
	if res.Metadatas[0].Filename != "rules.txt" || res.Metadatas[0].ChunkIndex != 1 {
		t.Errorf("metadata = %+v", res.Metadatas[0])
	}

	if err := store.Delete(ctx, "p1", "Doc-2026-0001"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n, _ = store.Count(ctx, "p1"); n != 0 {
		t.Fatalf("Count() after delete = %d, want 0", n)
	}
	// Deleting again is a no-op.
	if err := store.Delete(ctx, "p1", "Doc-2026-0001"); err != nil {
		t.Fatalf("repeat Delete() error = %v", err)
	}
}

func TestResyncRebuildsCollection(t *testing.T) {
	pool := testutil.StartPostgres(t)
	ctx := context.Background()

	store := New(pool, fakeEmbed, log.NewNop())
	engine := NewEngine(store, log.NewNop())

	// Stale entry that resync must remove.
	if err := store.Add(ctx, "p1", "Doc-2026-0009", []string{"stale"}, nil, "old.txt"); err != nil {
		t.Fatal(err)
	}

	chunkJSON, _ := json.Marshal([]string{"first chunk", "second chunk"})
	records := []document.ResyncRecord{
		{DocumentID: "Doc-2026-0001", Filename: "a.txt", ChunkJSON: chunkJSON},
	}

	docs, chunks, err := engine.Resync(ctx, "p1", records)
	if err != nil {
		t.Fatalf("Resync() error = %v", err)
	}
	if docs != 1 || chunks != 2 {
		t.Fatalf("Resync() = (%d, %d), want (1, 2)", docs, chunks)
	}
	if n, _ := store.Count(ctx, "p1"); n != 2 {
		t.Fatalf("Count() = %d, want 2 after resync", n)
	}

	docs2, chunks2, err := engine.Resync(ctx, "p1", records)
	if err != nil {
		t.Fatalf("second Resync() error = %v", err)
	}
	if docs2 != docs || chunks2 != chunks {
		t.Errorf("resync not idempotent: (%d,%d) vs (%d,%d)", docs, chunks, docs2, chunks2)
	}
}
