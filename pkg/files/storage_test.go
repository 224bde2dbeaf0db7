package files

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gatehouse-io/gatehouse/pkg/store"
)

func setup(t *testing.T) (*Storage, string) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if _, err := db.Exec(store.TestSchema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	storage, err := NewStorage(root, store.NewFileStore(db), nil)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	return storage, root
}

func TestSaveAndOpen(t *testing.T) {
	storage, root := setup(t)
	ctx := context.Background()

	rec, err := storage.Save(ctx, "avatar.PNG", "image/png", strings.NewReader("content"), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if rec.ID == 0 {
		t.Error("expected record id assigned")
	}
	if rec.Size != int64(len("content")) {
		t.Errorf("unexpected size %d", rec.Size)
	}
	if !strings.HasSuffix(rec.URL, rec.MD5Sum+".png") {
		t.Errorf("unexpected url %q", rec.URL)
	}
	if rec.URL != ShardPath(rec.MD5Sum, ".png") {
		t.Errorf("url %q does not follow shard layout", rec.URL)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rec.URL))); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	got, f, err := storage.Open(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("unexpected content %q", data)
	}
	if got.Name != "avatar.PNG" {
		t.Errorf("unexpected name %q", got.Name)
	}
}

func TestSaveDeduplicatesByContent(t *testing.T) {
	storage, _ := setup(t)
	ctx := context.Background()

	first, err := storage.Save(ctx, "a.txt", "text/plain", strings.NewReader("same"), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := storage.Save(ctx, "b.txt", "text/plain", strings.NewReader("same"), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if first.URL != second.URL {
		t.Errorf("expected shared path, got %q and %q", first.URL, second.URL)
	}
	if first.ID == second.ID {
		t.Error("expected distinct records")
	}
}

func TestDeleteKeepsSharedFile(t *testing.T) {
	storage, root := setup(t)
	ctx := context.Background()

	rec, err := storage.Save(ctx, "a.txt", "text/plain", strings.NewReader("keep"), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := storage.Delete(ctx, rec.ID, false); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, _, err := storage.Open(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rec.URL))); err != nil {
		t.Errorf("disk file should survive record deletion: %v", err)
	}
}

func TestSaveCarriesAttribution(t *testing.T) {
	storage, _ := setup(t)
	creator := int64(5)
	dept := int64(9)

	rec := &store.FileRecord{}
	rec.Creator = &creator
	rec.DeptBelongID = &dept
	saved, err := storage.Save(context.Background(), "doc.pdf", "application/pdf", strings.NewReader("pdf"), rec)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Creator == nil || *saved.Creator != creator {
		t.Error("creator attribution lost")
	}
	if saved.DeptBelongID == nil || *saved.DeptBelongID != dept {
		t.Error("dept attribution lost")
	}
}
