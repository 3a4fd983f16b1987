package storage

import (
	"context"
	"time"
)

// WearableData is the current wearable metrics record mirrored from the
// companion watch app. Pointer fields distinguish "never reported" from a
// zero measurement; they serialize as JSON null when absent.
type WearableData struct {
	HeartRate       *float64   `json:"heartRate"`
	HRV             *float64   `json:"hrv"`
	RespiratoryRate *float64   `json:"respiratoryRate"`
	LastUpdated     *time.Time `json:"lastUpdated"`
}

// Storage defines the interface for data persistence
type Storage interface {
	// Wearable metrics (single current record)
	GetWearableData(ctx context.Context) (*WearableData, error)
	SaveWearableData(ctx context.Context, data *WearableData) error

	// Lifecycle
	Close() error
}
