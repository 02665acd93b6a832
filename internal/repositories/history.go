package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/encore/internal/models"
)

// HistoryRepository persists [models.PlayRecord] rows.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create inserts a record and sets its ID.
func (r *HistoryRepository) Create(record *models.PlayRecord) error {
	if record.SongID == "" {
		return fmt.Errorf("validation failed: song id is required")
	}
	if record.Event == "" {
		return fmt.Errorf("validation failed: event is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO play_history (song_id, title, artist, album, event, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		record.SongID,
		record.Title,
		record.Artist,
		record.Album,
		record.Event,
		record.Detail,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert play record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted id: %w", err)
	}
	record.ID = id

	return nil
}

// List returns records newest first. criteria supports "song_id", "event" and "limit".
func (r *HistoryRepository) List(criteria map[string]any) ([]models.PlayRecord, error) {
	query := `
		SELECT id, song_id, title, artist, album, event, detail, created_at
		FROM play_history
		WHERE 1 = 1
	`

	args := []any{}

	if songID, ok := criteria["song_id"].(string); ok && songID != "" {
		query += " AND song_id = ?"
		args = append(args, songID)
	}

	if event, ok := criteria["event"].(string); ok && event != "" {
		query += " AND event = ?"
		args = append(args, event)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query play history: %w", err)
	}
	defer rows.Close()

	var records []models.PlayRecord
	for rows.Next() {
		var rec models.PlayRecord
		if err := rows.Scan(&rec.ID, &rec.SongID, &rec.Title, &rec.Artist, &rec.Album, &rec.Event, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan play record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// CountByEvent returns how many records exist per event name.
func (r *HistoryRepository) CountByEvent() (map[string]int, error) {
	rows, err := r.db.Query("SELECT event, COUNT(*) FROM play_history GROUP BY event")
	if err != nil {
		return nil, fmt.Errorf("failed to count play history: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			event string
			n     int
		)
		if err := rows.Scan(&event, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[event] = n
	}

	return counts, rows.Err()
}

// Purge deletes records created before cutoff and returns how many were removed.
func (r *HistoryRepository) Purge(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM play_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge play history: %w", err)
	}

	return result.RowsAffected()
}
