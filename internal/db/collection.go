package db

import (
	"context"
	"errors"

	"github.com/ukydev/fleet-tracks/internal/models"
)

var (
	ErrDuplicateFile = errors.New("gpx file already exists")
	ErrNotFound      = errors.New("record not found")
	ErrNotConnected  = errors.New("store is not connected")
)

// TripStore is the entity store shared by ingestion and retrieval.
type TripStore interface {
	FileExists(ctx context.Context, fileName string) (bool, error)
	// WithinTx runs fn in one transaction. The transaction commits only when fn
	// returns nil; any error rolls back every write made through the TripWriter.
	WithinTx(ctx context.Context, fn func(w TripWriter) error) error

	ListFiles(ctx context.Context) ([]models.FileSummary, error)
	FindFile(ctx context.Context, fileName string) (*models.GpxFile, error)
	FindTripWithPoints(ctx context.Context, tripID int64) (*models.Trip, error)

	Close(ctx context.Context) error
}

// TripWriter performs the ingestion inserts inside a transaction.
type TripWriter interface {
	// InsertFile returns ErrDuplicateFile when the unique file name constraint rejects the row.
	InsertFile(ctx context.Context, file *models.GpxFile) error
	InsertDriver(ctx context.Context, driver *models.Driver) error
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	InsertTrip(ctx context.Context, trip *models.Trip) error
	InsertTripPoints(ctx context.Context, points []models.TripPoint) error
}
