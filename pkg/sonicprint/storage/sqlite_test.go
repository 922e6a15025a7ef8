package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_sonicprint.sqlite3")
	t.Setenv("SONICPRINT_DB_PATH", dbPath)

	client, err := NewDBClient()
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client, dbPath
}

func testRecord(raw, settings string) *Record {
	return &Record{
		Name:           "sample",
		RawDigest:      raw,
		SettingsDigest: settings,
		Hash:           -42,
		FloatHash:      0.25,
		Width:          10,
		Height:         5,
		Samples:        3,
		Features:       1,
		Raw:            []byte(`{"shape":[10,5],"coords":{"x":[0,1,2],"y":[1,2,3]}}`),
		Payload:        []byte(`{"hash":-42}`),
	}
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client.DB == nil || client.db == nil {
		t.Fatal("Expected non-nil DB handles")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestNewDBClientWithNestedPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "cache.db")
	client, err := NewDBClientWithPath(path)
	if err != nil {
		t.Fatalf("Failed to create DB with nested path: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Database file missing: %v", err)
	}
}

func TestSaveAndGet(t *testing.T) {
	client, _ := setupTestDB(t)

	id, err := client.Save(testRecord("raw-1", "set-1"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("Expected uuid id, got %q", id)
	}

	rec, err := client.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Hash != -42 || rec.Name != "sample" || string(rec.Payload) != `{"hash":-42}` {
		t.Errorf("Unexpected record: %+v", rec)
	}
}

func TestSaveIsIdempotentPerKey(t *testing.T) {
	client, _ := setupTestDB(t)

	id1, err := client.Save(testRecord("raw-1", "set-1"))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := client.Save(testRecord("raw-1", "set-1"))
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Errorf("Expected same id for the same cache key, got %s and %s", id1, id2)
	}

	id3, err := client.Save(testRecord("raw-1", "set-2"))
	if err != nil {
		t.Fatal(err)
	}
	if id3 == id1 {
		t.Error("Different settings must produce a separate record")
	}

	n, err := client.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected 2 records, found %d", n)
	}
}

func TestFindByKey(t *testing.T) {
	client, _ := setupTestDB(t)

	if _, err := client.FindByKey("nope", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	id, _ := client.Save(testRecord("raw-1", "set-1"))
	rec, err := client.FindByKey("raw-1", "set-1")
	if err != nil {
		t.Fatalf("FindByKey failed: %v", err)
	}
	if rec.ID != id {
		t.Errorf("Expected %s, got %s", id, rec.ID)
	}
}

func TestListOmitsBlobs(t *testing.T) {
	client, _ := setupTestDB(t)
	client.Save(testRecord("raw-1", "set-1"))
	client.Save(testRecord("raw-2", "set-1"))

	rows, err := client.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if len(r.Payload) != 0 || len(r.Raw) != 0 {
			t.Errorf("List should not load blobs for %s", r.ID)
		}
		if r.Samples != 3 {
			t.Errorf("Expected summary columns, got %+v", r)
		}
	}
}

func TestDelete(t *testing.T) {
	client, _ := setupTestDB(t)
	id, _ := client.Save(testRecord("raw-1", "set-1"))

	if err := client.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := client.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := client.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestNilClient(t *testing.T) {
	var c *DBClient
	if _, err := c.Save(&Record{}); err == nil {
		t.Error("Expected error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil client should be a no-op, got %v", err)
	}
}
