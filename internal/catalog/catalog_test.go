package catalog

import (
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/JuniperSFZ/core/sfz"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testEntry(path string, source []byte, doc string) *Entry {
	return &Entry{
		Path:         path,
		SourceSHA256: sfz.HashBytes(source),
		SourceBLAKE3: sfz.Blake3Source(source),
		Document:     []byte(doc),
	}
}

// TestPutGet tests storing an entry and reading it back, including the
// assigned ID and timestamp.
func TestPutGet(t *testing.T) {
	c := openTestCatalog(t)

	source := []byte("<region>\nsample=kick.wav\n")
	id, err := c.Put(testEntry("kit.sfz", source, `{"drums":[]}`))
	if err != nil {
		t.Fatalf("failed to store entry: %v", err)
	}
	if id == "" {
		t.Fatal("stored entry has no ID")
	}

	got, err := c.Get(id)
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}
	if got == nil {
		t.Fatal("stored entry not found")
	}
	if got.Path != "kit.sfz" {
		t.Errorf("path = %q, want kit.sfz", got.Path)
	}
	if got.SourceSHA256 != sfz.HashBytes(source) {
		t.Errorf("source sha256 = %q, want the hash of the source", got.SourceSHA256)
	}
	if string(got.Document) != `{"drums":[]}` {
		t.Errorf("document = %q, want the stored JSON", got.Document)
	}
	if got.CreatedAt == "" {
		t.Error("entry has no creation timestamp")
	}
}

// TestGetMissing tests that looking up an unknown ID returns nil without
// an error.
func TestGetMissing(t *testing.T) {
	c := openTestCatalog(t)

	got, err := c.Get("no-such-id")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got != nil {
		t.Errorf("lookup of unknown ID returned %+v, want nil", got)
	}
}

// TestFindBySourceHash tests dedupe lookups: the latest entry for a given
// source hash is returned, and unknown hashes return nil.
func TestFindBySourceHash(t *testing.T) {
	c := openTestCatalog(t)

	source := []byte("<region>\nsample=snare.wav\n")
	first := testEntry("old.sfz", source, `{}`)
	first.CreatedAt = "2026-01-01T00:00:00Z"
	if _, err := c.Put(first); err != nil {
		t.Fatalf("failed to store first entry: %v", err)
	}
	second := testEntry("new.sfz", source, `{}`)
	second.CreatedAt = "2026-06-01T00:00:00Z"
	if _, err := c.Put(second); err != nil {
		t.Fatalf("failed to store second entry: %v", err)
	}

	got, err := c.FindBySourceHash(sfz.HashBytes(source))
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got == nil || got.Path != "new.sfz" {
		t.Errorf("entry = %+v, want the most recent (new.sfz)", got)
	}

	miss, err := c.FindBySourceHash(sfz.HashBytes([]byte("other")))
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if miss != nil {
		t.Errorf("unknown hash returned %+v, want nil", miss)
	}
}

// TestList tests ordering and that listed entries omit their documents.
func TestList(t *testing.T) {
	c := openTestCatalog(t)

	for i, stamp := range []string{
		"2026-03-01T00:00:00Z",
		"2026-01-01T00:00:00Z",
		"2026-02-01T00:00:00Z",
	} {
		e := testEntry("kit.sfz", []byte{byte(i)}, `{"x":1}`)
		e.CreatedAt = stamp
		if _, err := c.Put(e); err != nil {
			t.Fatalf("failed to store entry %d: %v", i, err)
		}
	}

	entries, err := c.List()
	if err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entry count = %d, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].CreatedAt > entries[i].CreatedAt {
			t.Errorf("entries out of order: %s after %s", entries[i-1].CreatedAt, entries[i].CreatedAt)
		}
	}
	for i, e := range entries {
		if len(e.Document) != 0 {
			t.Errorf("listed entry %d carries a document", i)
		}
	}
}

// TestOpenReopens tests that a catalog persists across close and reopen.
func TestOpenReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	id, err := c.Put(testEntry("kit.sfz", []byte("src"), `{}`))
	if err != nil {
		t.Fatalf("failed to store entry: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("failed to close catalog: %v", err)
	}

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen catalog: %v", err)
	}
	defer c2.Close()
	got, err := c2.Get(id)
	if err != nil {
		t.Fatalf("failed to get entry after reopen: %v", err)
	}
	if got == nil {
		t.Error("entry lost across reopen")
	}
}
