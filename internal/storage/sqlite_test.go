package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/smartlens/internal/models"
)

func testPhoto(id, path string) *models.Photo {
	return &models.Photo{
		ID:        id,
		Path:      path,
		Embedding: []float32{0.1, 0.2, 0.3},
		Width:     640,
		Height:    480,
		SizeBytes: 1234,
		ModTimeNS: 1700000000000000000,
	}
}

func TestSQLiteStorage_CRUD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	photo := testPhoto("sunset.jpg", "/photos/sunset.jpg")
	if err := store.UpsertPhoto(ctx, photo); err != nil {
		t.Fatal(err)
	}
	if photo.IndexedAt.IsZero() {
		t.Error("IndexedAt should be set")
	}

	got, err := store.GetPhoto(ctx, "sunset.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != "/photos/sunset.jpg" || got.Width != 640 {
		t.Errorf("got %+v", got)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.2 {
		t.Errorf("embedding not round-tripped: %v", got.Embedding)
	}

	// Upsert with the same ID replaces the record.
	photo.Embedding = []float32{1, 1, 1}
	photo.SizeBytes = 5678
	if err := store.UpsertPhoto(ctx, photo); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetPhoto(ctx, "sunset.jpg")
	if got.SizeBytes != 5678 || got.Embedding[0] != 1 {
		t.Errorf("upsert did not replace: %+v", got)
	}
	n, _ := store.CountPhotos(ctx)
	if n != 1 {
		t.Errorf("expected 1 photo after re-upsert, got %d", n)
	}

	if err := store.DeletePhoto(ctx, "sunset.jpg"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetPhoto(ctx, "sunset.jpg"); err == nil {
		t.Error("expected error after delete")
	}
}

func TestSQLiteStorage_ListAndAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	for _, id := range []string{"c.jpg", "a.jpg", "b.jpg"} {
		if err := store.UpsertPhoto(ctx, testPhoto(id, "/photos/"+id)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListPhotos(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 photos, got %d", len(list))
	}
	if list[0].ID != "a.jpg" || list[2].ID != "c.jpg" {
		t.Errorf("photos not ordered by ID: %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
	if list[0].Embedding != nil {
		t.Error("ListPhotos should not load embeddings")
	}

	page, err := store.ListPhotos(ctx, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != "b.jpg" {
		t.Errorf("expected page [b.jpg], got %+v", page)
	}

	all, err := store.AllPhotos(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 photos, got %d", len(all))
	}
	for _, p := range all {
		if len(p.Embedding) != 3 {
			t.Errorf("AllPhotos should load embeddings, got %v for %s", p.Embedding, p.ID)
		}
	}
}

func TestSQLiteStorage_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clear.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	n, err := store.CountPhotos(ctx)
	if err != nil || n != 0 {
		t.Errorf("CountPhotos: %v, %d", err, n)
	}
	_ = store.UpsertPhoto(ctx, testPhoto("x.jpg", "/photos/x.jpg"))
	n, _ = store.CountPhotos(ctx)
	if n != 1 {
		t.Errorf("expected 1 photo, got %d", n)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	n, _ = store.CountPhotos(ctx)
	if n != 0 {
		t.Errorf("expected 0 photos after clear, got %d", n)
	}
}
