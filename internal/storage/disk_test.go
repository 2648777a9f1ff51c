package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newDisk(t *testing.T) *Disk {
	t.Helper()
	d, err := NewDisk(filepath.Join(t.TempDir(), "objects"), "http://localhost:8080/files/")
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	return d
}

func TestDisk_PutReadExists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := newDisk(t)

	ok, err := d.Exists(ctx, "tickets/a.pdf")
	if err != nil || ok {
		t.Fatalf("expected missing object, got %v %v", ok, err)
	}
	if _, err := d.Read(ctx, "tickets/a.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := d.Put(ctx, "tickets/a.pdf", []byte("%PDF-1.3"), "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err = d.Exists(ctx, "tickets/a.pdf")
	if err != nil || !ok {
		t.Fatalf("expected object to exist, got %v %v", ok, err)
	}
	data, err := d.Read(ctx, "tickets/a.pdf")
	if err != nil || string(data) != "%PDF-1.3" {
		t.Fatalf("unexpected read %q %v", data, err)
	}

	// Overwrite replaces content and leaves no temp files behind.
	if err := d.Put(ctx, "tickets/a.pdf", []byte("v2"), "application/pdf"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(d.Root(), "tickets"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single file, got %d", len(entries))
	}
}

func TestDisk_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	d := newDisk(t)
	for _, key := range []string{"", "/etc/passwd", "../x", "a/../../x", "a//b", `a\b`, "a/./b"} {
		if err := d.Put(context.Background(), key, []byte("x"), ""); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestDisk_URL(t *testing.T) {
	t.Parallel()

	d := newDisk(t)
	if got := d.URL("avatars/u1.png"); got != "http://localhost:8080/files/avatars/u1.png" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := d.URL(""); got != "" {
		t.Fatalf("expected empty url, got %q", got)
	}
}
