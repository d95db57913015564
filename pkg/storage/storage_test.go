package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/developlogy/sitebuilder/pkg/storage"
)

func exercise(t *testing.T, d storage.Disk) {
	t.Helper()
	ctx := context.Background()

	if err := d.Put(ctx, "exports/site-1/v2.zip", []byte("PK-v2"), "application/zip"); err != nil {
		t.Fatal(err)
	}
	if err := d.Put(ctx, "og/site-1.png", []byte("PNG"), "image/png"); err != nil {
		t.Fatal(err)
	}

	got, err := d.Get(ctx, "exports/site-1/v2.zip")
	if err != nil || string(got) != "PK-v2" {
		t.Fatalf("unexpected get: %q %v", got, err)
	}

	if ok, err := d.Exists(ctx, "og/site-1.png"); err != nil || !ok {
		t.Fatalf("expected og image to exist: %v", err)
	}

	objs, err := d.List(ctx, "exports/")
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 || objs[0].Path != "exports/site-1/v2.zip" || objs[0].Size != 5 {
		t.Fatalf("unexpected listing %+v", objs)
	}

	if err := d.Delete(ctx, "og/site-1.png"); err != nil {
		t.Fatal(err)
	}
	if err := d.Delete(ctx, "og/site-1.png"); err != nil {
		t.Fatalf("deleting a missing file must not fail: %v", err)
	}
	if _, err := d.Get(ctx, "og/site-1.png"); !errors.Is(err, storage.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestLocalDisk(t *testing.T) {
	d := storage.NewLocalDisk(t.TempDir(), "http://localhost:8080/storage/")
	exercise(t, d)

	if got := d.URL("/og/site-1.png"); got != "http://localhost:8080/storage/og/site-1.png" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestLocalDiskRejectsEscapingPaths(t *testing.T) {
	d := storage.NewLocalDisk(t.TempDir(), "")
	if err := d.Put(context.Background(), "../outside.txt", []byte("x"), ""); err == nil {
		t.Fatal("expected path traversal to be rejected")
	}
}

func TestMemoryDisk(t *testing.T) {
	exercise(t, storage.NewMemoryDisk("https://cdn.example"))
}

func TestManagerFallsBackToRegisteredDisk(t *testing.T) {
	mem := storage.NewMemoryDisk("")
	storage.RegisterDisk("local", mem)
	if storage.Default() != mem {
		t.Fatal("expected default to resolve to the registered local disk")
	}
	if _, err := storage.Use("nope"); err == nil {
		t.Fatal("expected unknown disk error")
	}
}
