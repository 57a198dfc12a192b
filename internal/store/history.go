package store

import (
	"fmt"

	"github.com/cesargomez89/downpour/internal/domain"
)

// ListHistory returns all persisted records, newest first.
func (db *DB) ListHistory() ([]domain.HistoryRecord, error) {
	query := `SELECT id, url, platform, status, thumbnail_base64, timestamp, filename,
		file_path, file_size, is_playlist, playlist_name, items
		FROM history ORDER BY timestamp DESC, url ASC`

	var records []domain.HistoryRecord
	err := db.Select(&records, query)
	return records, err
}

// InsertHistory writes a single record.
func (db *DB) InsertHistory(rec *domain.HistoryRecord) error {
	query := `INSERT OR REPLACE INTO history
		(id, url, platform, status, thumbnail_base64, timestamp, filename, file_path, file_size, is_playlist, playlist_name, items)
		VALUES (:id, :url, :platform, :status, :thumbnail_base64, :timestamp, :filename, :file_path, :file_size, :is_playlist, :playlist_name, :items)`

	_, err := db.NamedExec(query, rec)
	return err
}

// DeleteHistory removes a record by id. Deleting an absent id is a no-op.
func (db *DB) DeleteHistory(id string) error {
	_, err := db.Exec(`DELETE FROM history WHERE id = ?`, id)
	return err
}

// ReplaceHistory atomically rewrites the full record set. This is the
// persistence pass: the in-memory store is the truth and the table follows it.
func (db *DB) ReplaceHistory(records []domain.HistoryRecord) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	query := `INSERT INTO history
		(id, url, platform, status, thumbnail_base64, timestamp, filename, file_path, file_size, is_playlist, playlist_name, items)
		VALUES (:id, :url, :platform, :status, :thumbnail_base64, :timestamp, :filename, :file_path, :file_size, :is_playlist, :playlist_name, :items)`

	for i := range records {
		if _, err := tx.NamedExec(query, &records[i]); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", records[i].ID, err)
		}
	}

	return tx.Commit()
}
