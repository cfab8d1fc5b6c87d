package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tracks/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const pointBatchSize = 500

// SQLiteDSN appends the pragmas the store relies on: enforced foreign keys,
// a busy timeout, and write transactions that take the lock up front.
func SQLiteDSN(path string) string {
	return path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

// SQLStore implements TripStore on top of gorm (sqlite or postgres).
type SQLStore struct {
	DB *gorm.DB
}

// OpenSQL opens a gorm connection for the given driver ("sqlite" or "postgres")
// and migrates the schema.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := bootstrap(db); err != nil {
		return nil, fmt.Errorf("migrate %s database: %w", driver, err)
	}
	return &SQLStore{DB: db}, nil
}

// ConnectSQLWithRetry retries OpenSQL, for databases that start alongside the service.
func ConnectSQLWithRetry(driver, dsn string, attempts int, delay time.Duration) (*SQLStore, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		store, err := OpenSQL(driver, dsn)
		if err == nil {
			return store, nil
		}
		lastErr = err
		log.WithError(err).WithField("attempt", i).Warn("Database not ready")
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("db connect failed after %d attempts: %w", attempts, lastErr)
}

func bootstrap(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Driver{},
		&models.Vehicle{},
		&models.Trip{},
		&models.TripPoint{},
		&models.GpxFile{},
	)
}

// FileExists reports whether a gpx file with the exact name is stored.
func (s *SQLStore) FileExists(ctx context.Context, fileName string) (bool, error) {
	if s.DB == nil {
		return false, ErrNotConnected
	}
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.GpxFile{}).
		Where("file_name = ?", fileName).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// WithinTx runs fn inside a gorm transaction.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(w TripWriter) error) error {
	if s.DB == nil {
		return ErrNotConnected
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&sqlWriter{tx: tx})
	})
}

// ListFiles returns every stored file, newest upload first.
func (s *SQLStore) ListFiles(ctx context.Context) ([]models.FileSummary, error) {
	if s.DB == nil {
		return nil, ErrNotConnected
	}
	files := []models.FileSummary{}
	err := s.DB.WithContext(ctx).Model(&models.GpxFile{}).
		Select("gpx_file_id", "file_name", "uploaded_at").
		Order("uploaded_at DESC").
		Order("gpx_file_id DESC").
		Scan(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// FindFile looks up a file by exact name.
func (s *SQLStore) FindFile(ctx context.Context, fileName string) (*models.GpxFile, error) {
	if s.DB == nil {
		return nil, ErrNotConnected
	}
	var file models.GpxFile
	err := s.DB.WithContext(ctx).Where("file_name = ?", fileName).Take(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// FindTripWithPoints loads a trip and its points in insertion order.
func (s *SQLStore) FindTripWithPoints(ctx context.Context, tripID int64) (*models.Trip, error) {
	if s.DB == nil {
		return nil, ErrNotConnected
	}
	var trip models.Trip
	err := s.DB.WithContext(ctx).Where("trip_id = ?", tripID).Take(&trip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("point_id ASC").
		Find(&trip.Points).Error
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqlWriter struct {
	tx *gorm.DB
}

func (w *sqlWriter) InsertFile(ctx context.Context, file *models.GpxFile) error {
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	err := w.tx.WithContext(ctx).Create(file).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateFile, file.FileName)
	}
	return err
}

func (w *sqlWriter) InsertDriver(ctx context.Context, driver *models.Driver) error {
	return w.tx.WithContext(ctx).Create(driver).Error
}

func (w *sqlWriter) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	return w.tx.WithContext(ctx).Create(vehicle).Error
}

func (w *sqlWriter) InsertTrip(ctx context.Context, trip *models.Trip) error {
	return w.tx.WithContext(ctx).Omit(clause.Associations).Create(trip).Error
}

func (w *sqlWriter) InsertTripPoints(ctx context.Context, points []models.TripPoint) error {
	if len(points) == 0 {
		return nil
	}
	return w.tx.WithContext(ctx).Omit(clause.Associations).CreateInBatches(points, pointBatchSize).Error
}

// isUniqueViolation covers drivers whose errors are not translated by gorm.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
