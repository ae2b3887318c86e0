package catalog

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	// A file-backed database: ":memory:" gives every pooled connection
	// its own empty database.
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAddAndList(t *testing.T) {
	c := openTestCatalog(t)

	first := Entry{
		ID:         "5bce8a0c-1111-4222-8333-444455556666",
		Path:       "/tmp/take1.wav",
		SampleRate: 44100,
		Samples:    44100,
		Duration:   1.0,
		Bytes:      44 + 44100*4,
		CreatedAt:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	second := Entry{
		ID:         "7dce8a0c-1111-4222-8333-444455557777",
		Path:       "/tmp/take2.wav",
		SampleRate: 48000,
		Samples:    24000,
		Duration:   0.5,
		Bytes:      44 + 24000*4,
		CreatedAt:  time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC),
	}

	if err := c.Add(first); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := c.Add(second); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	entries, err := c.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first
	if entries[0].ID != second.ID {
		t.Errorf("expected newest entry first, got %s", entries[0].ID)
	}
	if entries[1].Path != first.Path {
		t.Errorf("expected path %q, got %q", first.Path, entries[1].Path)
	}
	if entries[1].SampleRate != 44100 || entries[1].Samples != 44100 {
		t.Errorf("entry fields did not round trip: %+v", entries[1])
	}
}

func TestListEmpty(t *testing.T) {
	c := openTestCatalog(t)

	entries, err := c.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty catalog, got %d entries", len(entries))
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	c := openTestCatalog(t)

	e := Entry{ID: "dup", Path: "/tmp/a.wav", SampleRate: 44100, CreatedAt: time.Now()}
	if err := c.Add(e); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := c.Add(e); err == nil {
		t.Error("expected error inserting duplicate recording id")
	}
}
