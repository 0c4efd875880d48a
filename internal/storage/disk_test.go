package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMeasureDisk(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "teachable.db")
	heads := filepath.Join(dir, "heads")
	if err := os.Mkdir(heads, 0755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		db:                                  "hello",
		db + "-wal":                         "wal",
		filepath.Join(heads, "pets.json"):   "{}",
		filepath.Join(heads, "birds.JSON"):  "{ }",
		filepath.Join(heads, ".head-1.tmp"): "partial",
		filepath.Join(heads, "notes.txt"):   "ignored",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(heads, "nested.json"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := MeasureDisk(db, heads)
	if err != nil {
		t.Fatal(err)
	}
	if got.DatabaseBytes != 8 {
		t.Errorf("database: got %d bytes, want 8", got.DatabaseBytes)
	}
	if got.HeadsBytes != 5 {
		t.Errorf("heads: got %d bytes, want 5", got.HeadsBytes)
	}
	if got.TotalBytes != 13 {
		t.Errorf("total: got %d bytes, want 13", got.TotalBytes)
	}
}

func TestMeasureDisk_MissingAndEmptyPaths(t *testing.T) {
	dir := t.TempDir()
	got, err := MeasureDisk(filepath.Join(dir, "missing.db"), filepath.Join(dir, "no-heads"))
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalBytes != 0 {
		t.Errorf("missing paths: got %+v", got)
	}

	got, err = MeasureDisk("", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalBytes != 0 {
		t.Errorf("empty paths: got %+v", got)
	}
}
