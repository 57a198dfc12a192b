package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cesargomez89/downpour/internal/domain"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	tmpFile := filepath.Join(t.TempDir(), "test.db")
	db, err := NewSQLiteDB(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	cleanup := func() {
		if cErr := db.Close(); cErr != nil {
			t.Logf("db.Close error: %v", cErr)
		}
		if rErr := os.Remove(tmpFile); rErr != nil {
			t.Logf("os.Remove error: %v", rErr)
		}
	}
	return db, cleanup
}

func TestDB_History(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	rec := &domain.HistoryRecord{
		ID:        "h1",
		URL:       "https://example.com/v",
		Platform:  "youtube",
		Status:    domain.StatusCompleted,
		Timestamp: 1700000000,
		Filename:  "v.mp3",
		FilePath:  "/music/v.mp3",
		FileSize:  4096,
	}

	if err := db.InsertHistory(rec); err != nil {
		t.Fatalf("InsertHistory failed: %v", err)
	}

	records, err := db.ListHistory()
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].ID != "h1" {
		t.Errorf("Expected id h1, got %s", records[0].ID)
	}
	if records[0].Status != domain.StatusCompleted {
		t.Errorf("Expected status completed, got %s", records[0].Status)
	}

	if err := db.DeleteHistory("h1"); err != nil {
		t.Errorf("DeleteHistory failed: %v", err)
	}
	// Deleting an absent id is a no-op
	if err := db.DeleteHistory("h1"); err != nil {
		t.Errorf("Second DeleteHistory failed: %v", err)
	}

	records, _ = db.ListHistory()
	if len(records) != 0 {
		t.Errorf("Expected 0 records after delete, got %d", len(records))
	}
}

func TestDB_HistoryItemsRoundtrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	rec := &domain.HistoryRecord{
		ID:         "h2",
		URL:        "https://example.com/list",
		Status:     domain.StatusCompleted,
		Timestamp:  1700000001,
		IsPlaylist: true,
		Items: domain.ItemList{
			{Title: "one", Downloaded: true, FilePath: "/m/one.mp3", Duration: 120},
			{Title: "two", Downloaded: false},
		},
	}

	if err := db.InsertHistory(rec); err != nil {
		t.Fatalf("InsertHistory failed: %v", err)
	}

	records, err := db.ListHistory()
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	got := records[0]
	if !got.IsPlaylist {
		t.Error("Expected is_playlist to roundtrip")
	}
	if len(got.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(got.Items))
	}
	if got.Items[0].Title != "one" || !got.Items[0].Downloaded || got.Items[0].Duration != 120 {
		t.Errorf("Items did not roundtrip: %+v", got.Items[0])
	}
}

func TestDB_ReplaceHistory(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for _, id := range []string{"a", "b", "c"} {
		if err := db.InsertHistory(&domain.HistoryRecord{ID: id, URL: "u-" + id, Status: domain.StatusCompleted, Timestamp: 1}); err != nil {
			t.Fatalf("InsertHistory failed: %v", err)
		}
	}

	replacement := []domain.HistoryRecord{
		{ID: "x", URL: "u-x", Status: domain.StatusCompleted, Timestamp: 10},
		{ID: "y", URL: "u-y", Status: domain.StatusAlreadyExists, Timestamp: 5},
	}
	if err := db.ReplaceHistory(replacement); err != nil {
		t.Fatalf("ReplaceHistory failed: %v", err)
	}

	records, err := db.ListHistory()
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records after replace, got %d", len(records))
	}
	// Newest first
	if records[0].ID != "x" || records[1].ID != "y" {
		t.Errorf("Expected order x,y, got %s,%s", records[0].ID, records[1].ID)
	}
}

func TestDB_Settings(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepo(db)

	// Missing key reads as empty, not an error
	val, err := repo.Get(SettingOutputFormat)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "" {
		t.Errorf("Expected empty value for missing key, got %q", val)
	}

	if err := repo.Set(SettingOutputFormat, "flac"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, _ = repo.Get(SettingOutputFormat)
	if val != "flac" {
		t.Errorf("Expected flac, got %q", val)
	}

	// Upsert
	if err := repo.Set(SettingOutputFormat, "mp3"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, _ = repo.Get(SettingOutputFormat)
	if val != "mp3" {
		t.Errorf("Expected mp3 after upsert, got %q", val)
	}

	if err := repo.Delete(SettingOutputFormat); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	val, _ = repo.Get(SettingOutputFormat)
	if val != "" {
		t.Errorf("Expected empty after delete, got %q", val)
	}
}
