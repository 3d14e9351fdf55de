package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/log"
)

type mockQuerier struct {
	calls    []call
	execTags []string // consumed per Exec call; default "INSERT 0 1"
	execErr  error
}

type call struct {
	sql  string
	args []any
}

func (m *mockQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.calls = append(m.calls, call{sql: sql, args: args})
	if m.execErr != nil {
		return pgconn.CommandTag{}, m.execErr
	}
	tag := "INSERT 0 1"
	if len(m.execTags) > 0 {
		tag = m.execTags[0]
		m.execTags = m.execTags[1:]
	}
	return pgconn.NewCommandTag(tag), nil
}

func (m *mockQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.calls = append(m.calls, call{sql: sql, args: args})
	return nil, errors.New("query not scripted")
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.calls = append(m.calls, call{sql: sql, args: args})
	return nil
}

func (m *mockQuerier) inserts() []call {
	var out []call
	for _, c := range m.calls {
		if strings.Contains(c.sql, "INSERT INTO vector_entries") {
			out = append(out, c)
		}
	}
	return out
}

func TestAddUsesCallerEmbeddingsVerbatim(t *testing.T) {
	q := &mockQuerier{}
	embedCalled := false
	store := New(q, func(context.Context, []string) ([][]float32, error) {
		embedCalled = true
		return nil, errors.New("should not be called")
	}, log.NewNop())

	err := store.Add(context.Background(), "p1", "Doc-2026-0001",
		[]string{"alpha", "beta"}, [][]float32{{0.1}, {0.2}}, "a.txt")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if embedCalled {
		t.Error("embed function called despite matching embeddings")
	}

	inserts := q.inserts()
	if len(inserts) != 2 {
		t.Fatalf("got %d inserts, want 2", len(inserts))
	}
	if inserts[0].args[1] != "doc_Doc-2026-0001_chunk_1" {
		t.Errorf("entry id = %v", inserts[0].args[1])
	}
	if inserts[1].args[3] != 2 {
		t.Errorf("chunk index = %v, want 2 (1-based)", inserts[1].args[3])
	}
	vec, ok := inserts[0].args[6].(pgvector.Vector)
	if !ok || vec.Slice()[0] != 0.1 {
		t.Errorf("embedding arg = %v, want caller vector", inserts[0].args[6])
	}
}

func TestAddRecomputesOnMismatch(t *testing.T) {
	q := &mockQuerier{}
	store := New(q, func(_ context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{float32(i)}
		}
		return vectors, nil
	}, log.NewNop())

	err := store.Add(context.Background(), "p1", "d1",
		[]string{"a", "b", "c"}, [][]float32{{9}}, "f")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(q.inserts()) != 3 {
		t.Fatalf("got %d inserts, want 3", len(q.inserts()))
	}
}

func TestAddNoEmbeddingsNoFunc(t *testing.T) {
	store := New(&mockQuerier{}, nil, log.NewNop())
	err := store.Add(context.Background(), "p1", "d1", []string{"a"}, nil, "f")
	if err == nil {
		t.Fatal("Add() error = nil, want error without embed function")
	}
}

func TestClearReturnsRemovedCount(t *testing.T) {
	q := &mockQuerier{execTags: []string{"DELETE 7"}}
	store := New(q, nil, log.NewNop())

	n, err := store.Clear(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n != 7 {
		t.Errorf("Clear() = %d, want 7", n)
	}
	if got := q.calls[0].args[0]; got != "project_p1" {
		t.Errorf("collection arg = %v, want project_p1", got)
	}
}

func TestResyncSkipsBadRecords(t *testing.T) {
	q := &mockQuerier{}
	store := New(q, func(_ context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1}
		}
		return vectors, nil
	}, log.NewNop())
	engine := NewEngine(store, log.NewNop())

	goodChunks, _ := json.Marshal([]string{"a", "b"})
	goodEmbeddings, _ := json.Marshal([][]float32{{0.1}, {0.2}})
	shortEmbeddings, _ := json.Marshal([][]float32{{0.1}})

	records := []document.ResyncRecord{
		{DocumentID: "d1", Filename: "f1", ChunkJSON: goodChunks, EmbeddingsJSON: goodEmbeddings},
		{DocumentID: "d2", Filename: "f2", ChunkJSON: []byte("{bad")},
		{DocumentID: "d3", Filename: "f3", ChunkJSON: goodChunks, EmbeddingsJSON: shortEmbeddings},
	}

	docs, chunks, err := engine.Resync(context.Background(), "p1", records)
	if err != nil {
		t.Fatalf("Resync() error = %v", err)
	}
	if docs != 2 || chunks != 4 {
		t.Errorf("Resync() = (%d, %d), want (2, 4)", docs, chunks)
	}
	// d1 (2 inserts, stored vectors) + d3 (2 inserts, recomputed).
	if len(q.inserts()) != 4 {
		t.Errorf("got %d inserts, want 4", len(q.inserts()))
	}
}

func TestResyncIdempotentCounts(t *testing.T) {
	q := &mockQuerier{}
	store := New(q, nil, log.NewNop())
	engine := NewEngine(store, log.NewNop())

	chunksJSON, _ := json.Marshal([]string{"x"})
	embeddingsJSON, _ := json.Marshal([][]float32{{0.3}})
	records := []document.ResyncRecord{
		{DocumentID: "d1", ChunkJSON: chunksJSON, EmbeddingsJSON: embeddingsJSON},
	}

	d1, c1, err := engine.Resync(context.Background(), "p1", records)
	if err != nil {
		t.Fatalf("first Resync() error = %v", err)
	}
	d2, c2, err := engine.Resync(context.Background(), "p1", records)
	if err != nil {
		t.Fatalf("second Resync() error = %v", err)
	}
	if d1 != d2 || c1 != c2 {
		t.Errorf("counts differ across resyncs: (%d,%d) vs (%d,%d)", d1, c1, d2, c2)
	}
}
