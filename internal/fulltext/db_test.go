package fulltext

import (
	"testing"

	"github.com/starford/muninn/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func file(path, body string, links ...string) models.IndexedFile {
	return models.IndexedFile{
		Path:    path,
		Name:    path,
		Title:   path,
		Content: &body,
		Tags:    []string{"t"},
		Links:   links,
	}
}

func TestUpsertAndCount(t *testing.T) {
	db := testDB(t)
	if err := db.Upsert(file("a.md", "alpha")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := db.Upsert(file("a.md", "alpha again")); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	n, err := db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(file("one.md", "the quick brown fox"))
	_ = db.Upsert(file("two.md", "lazy dog"))

	hits, err := db.Search("quick", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Path != "one.md" {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].Snippet == "" {
		t.Error("expected snippet")
	}
}

func TestSearchNoContent(t *testing.T) {
	db := testDB(t)
	f := models.IndexedFile{Path: "img.png", Name: "img.png", Title: "img"}
	if err := db.Upsert(f); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	hits, err := db.Search("anything", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %+v", hits)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(file("gone.md", "vanishing content", "Other"))
	if err := db.Delete("gone.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	hits, _ := db.Search("vanishing", 10)
	if len(hits) != 0 {
		t.Errorf("deleted file still searchable: %+v", hits)
	}
	back, _ := db.Backlinks("Other.md")
	if len(back) != 0 {
		t.Errorf("deleted file still links: %v", back)
	}
}

func TestDelete_ReportsErrors(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(file("kept.md", "body", "Other"))
	if _, err := db.conn.Exec(`DROP TABLE links`); err != nil {
		t.Fatal(err)
	}

	if err := db.Delete("kept.md"); err == nil {
		t.Fatal("Delete succeeded without a links table")
	}
	if n, _ := db.Count(); n != 1 {
		t.Errorf("count = %d, want the delete rolled back", n)
	}
}

func TestReset(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(file("a.md", "x"))
	_ = db.Upsert(file("b.md", "y"))
	if err := db.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	n, _ := db.Count()
	if n != 0 {
		t.Errorf("count after reset = %d", n)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(file("source.md", "see [[Target|alias]]", "Target|alias"))
	_ = db.Upsert(file("other.md", "see [[notes/Target]]", "notes/Target"))
	_ = db.Upsert(file("self.md", "[[self]]", "self"))

	back, err := db.Backlinks("notes/Target.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(back) != 2 || back[0] != "other.md" || back[1] != "source.md" {
		t.Errorf("backlinks = %v", back)
	}

	self, _ := db.Backlinks("self.md")
	if len(self) != 0 {
		t.Errorf("self links should be excluded: %v", self)
	}
}

func TestLinkTarget(t *testing.T) {
	tests := map[string]string{
		"Note":               "Note",
		"Note|alias":         "Note",
		"Note#Heading":       "Note",
		" Dir/Note#H|alias ": "Dir/Note",
	}
	for in, want := range tests {
		if got := LinkTarget(in); got != want {
			t.Errorf("LinkTarget(%q) = %q, want %q", in, got, want)
		}
	}
}
