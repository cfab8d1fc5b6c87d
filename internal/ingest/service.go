// Package ingest turns uploaded GPX payloads into stored trips.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tracks/internal/db"
	"github.com/ukydev/fleet-tracks/internal/events"
	"github.com/ukydev/fleet-tracks/internal/metrics"
	"github.com/ukydev/fleet-tracks/internal/models"
)

// Service is the duplicate guard and ingestion orchestrator.
type Service struct {
	store     db.TripStore
	publisher events.Publisher
	metrics   *metrics.TrackMetrics
}

// NewService creates an ingestion service. publisher and m may be nil.
func NewService(store db.TripStore, publisher events.Publisher, m *metrics.TrackMetrics) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{store: store, publisher: publisher, metrics: m}
}

// FileExists reports whether fileName has already been ingested. Store errors
// are returned unchanged.
func (s *Service) FileExists(ctx context.Context, fileName string) (bool, error) {
	return s.store.FileExists(ctx, fileName)
}

// Ingest stores the file blob, a new driver, a new vehicle, the trip and its
// points in one transaction and returns the new trip id.
//
// The pre-check rejects known duplicates cheaply, but the unique constraint on
// the file name decides races between concurrent uploads of the same name.
// Cancellation of ctx is ignored: once started, an ingestion runs to commit or rollback.
func (s *Service) Ingest(ctx context.Context, req models.UploadRequest) (int64, error) {
	ctx = context.WithoutCancel(ctx)
	started := time.Now()
	logger := log.WithField("file_name", req.FileName)

	if missing := req.MissingFields(); len(missing) > 0 {
		s.metrics.ObserveIngest(metrics.OutcomeInvalid, started, 0)
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}

	exists, err := s.store.FileExists(ctx, req.FileName)
	if err != nil {
		s.metrics.ObserveIngest(metrics.OutcomeError, started, 0)
		return 0, fmt.Errorf("%w: check file: %w", ErrStore, err)
	}
	if exists {
		s.metrics.ObserveIngest(metrics.OutcomeDuplicate, started, 0)
		return 0, fmt.Errorf("%w: %s", ErrDuplicateFile, req.FileName)
	}

	var tripID int64
	err = s.store.WithinTx(ctx, func(w db.TripWriter) error {
		id, err := persist(ctx, w, req)
		tripID = id
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrDuplicateFile) || s.committedElsewhere(ctx, req.FileName) {
			logger.WithError(err).Info("Lost duplicate race at insert time")
			s.metrics.ObserveIngest(metrics.OutcomeDuplicate, started, 0)
			return 0, fmt.Errorf("%w: %s", ErrDuplicateFile, req.FileName)
		}
		logger.WithError(err).Error("Ingestion rolled back")
		s.metrics.ObserveIngest(metrics.OutcomeError, started, 0)
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}

	s.metrics.ObserveIngest(metrics.OutcomeSuccess, started, len(req.Points))
	logger.WithFields(log.Fields{
		"trip_id": tripID,
		"points":  len(req.Points),
	}).Info("Ingested trip")

	s.publish(ctx, tripID, req)
	return tripID, nil
}

// committedElsewhere reports whether a concurrent upload stored fileName
// while our transaction failed. Stores that surface the race as a write
// conflict rather than a unique violation end up here.
func (s *Service) committedElsewhere(ctx context.Context, fileName string) bool {
	exists, err := s.store.FileExists(ctx, fileName)
	return err == nil && exists
}

// persist runs the ordered inserts: file, driver, vehicle, trip, points.
func persist(ctx context.Context, w db.TripWriter, req models.UploadRequest) (int64, error) {
	file := &models.GpxFile{FileName: req.FileName, Content: req.GpxContent}
	if err := w.InsertFile(ctx, file); err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}

	driver := &models.Driver{Name: req.DriverName}
	if err := w.InsertDriver(ctx, driver); err != nil {
		return 0, fmt.Errorf("insert driver: %w", err)
	}

	vehicle := &models.Vehicle{LicensePlate: req.VehiclePlate}
	if err := w.InsertVehicle(ctx, vehicle); err != nil {
		return 0, fmt.Errorf("insert vehicle: %w", err)
	}

	trip := req.Trip()
	trip.DriverID = driver.ID
	trip.VehicleID = vehicle.ID
	if err := w.InsertTrip(ctx, &trip); err != nil {
		return 0, fmt.Errorf("insert trip: %w", err)
	}

	if points := req.TripPoints(trip.ID); len(points) > 0 {
		if err := w.InsertTripPoints(ctx, points); err != nil {
			return 0, fmt.Errorf("insert trip points: %w", err)
		}
	}
	return trip.ID, nil
}

// publish sends the trip event. Failures are logged and never affect the result.
func (s *Service) publish(ctx context.Context, tripID int64, req models.UploadRequest) {
	event := events.TripIngested{
		TripID:       tripID,
		FileName:     req.FileName,
		DriverName:   req.DriverName,
		VehiclePlate: req.VehiclePlate,
		PointCount:   len(req.Points),
		Distance:     req.Distance,
		IngestedAt:   time.Now().UTC(),
	}
	if err := s.publisher.PublishTripIngested(ctx, event); err != nil {
		log.WithError(err).WithField("trip_id", tripID).Warn("Failed to publish trip event")
		s.metrics.ObserveEvent("failed")
		return
	}
	s.metrics.ObserveEvent("published")
}
