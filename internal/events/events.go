// Package events publishes trip lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// TripIngested is published after a trip has been committed.
type TripIngested struct {
	TripID       int64     `json:"trip_id"`
	FileName     string    `json:"file_name"`
	DriverName   string    `json:"driver_name"`
	VehiclePlate string    `json:"vehicle_plate"`
	PointCount   int       `json:"point_count"`
	Distance     float64   `json:"distance"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// Publisher delivers trip events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishTripIngested(ctx context.Context, event TripIngested) error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishTripIngested(context.Context, TripIngested) error { return nil }

func encode(event TripIngested) ([]byte, error) {
	return json.Marshal(event)
}
