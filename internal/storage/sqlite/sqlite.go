package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HenryAllen04/Sigma-Saunas/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements storage.Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the database schema
func (s *SQLiteStorage) migrate() error {
	// Single current record, same shape as the companion app reports.
	schema := `
		CREATE TABLE IF NOT EXISTS wearable_data (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			heart_rate REAL,
			hrv REAL,
			respiratory_rate REAL,
			last_updated DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// GetWearableData retrieves the current wearable metrics record. When
// nothing has been stored yet an empty record is returned, so callers can
// render null metrics without a special case.
func (s *SQLiteStorage) GetWearableData(ctx context.Context) (*storage.WearableData, error) {
	var data storage.WearableData
	var heartRate, hrv, respiratoryRate sql.NullFloat64
	var lastUpdated sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT heart_rate, hrv, respiratory_rate, last_updated
		FROM wearable_data WHERE id = 1
	`).Scan(&heartRate, &hrv, &respiratoryRate, &lastUpdated)

	if err == sql.ErrNoRows {
		return &storage.WearableData{}, nil
	}
	if err != nil {
		return nil, err
	}

	if heartRate.Valid {
		data.HeartRate = &heartRate.Float64
	}
	if hrv.Valid {
		data.HRV = &hrv.Float64
	}
	if respiratoryRate.Valid {
		data.RespiratoryRate = &respiratoryRate.Float64
	}
	if lastUpdated.Valid {
		data.LastUpdated = &lastUpdated.Time
	}

	return &data, nil
}

// SaveWearableData saves or updates the current wearable metrics record
func (s *SQLiteStorage) SaveWearableData(ctx context.Context, data *storage.WearableData) error {
	now := time.Now().UTC()

	heartRate := nullFloat(data.HeartRate)
	hrv := nullFloat(data.HRV)
	respiratoryRate := nullFloat(data.RespiratoryRate)

	var lastUpdated sql.NullTime
	if data.LastUpdated != nil {
		lastUpdated = sql.NullTime{Time: *data.LastUpdated, Valid: true}
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM wearable_data WHERE id = 1)").Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		_, err = s.db.ExecContext(ctx, `
			UPDATE wearable_data
			SET heart_rate = ?, hrv = ?, respiratory_rate = ?, last_updated = ?, updated_at = ?
			WHERE id = 1
		`, heartRate, hrv, respiratoryRate, lastUpdated, now)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO wearable_data (id, heart_rate, hrv, respiratory_rate, last_updated, created_at, updated_at)
			VALUES (1, ?, ?, ?, ?, ?, ?)
		`, heartRate, hrv, respiratoryRate, lastUpdated, now, now)
	}

	return err
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// Ensure SQLiteStorage implements storage.Storage
var _ storage.Storage = (*SQLiteStorage)(nil)
