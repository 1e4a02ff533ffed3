// Package storage persists flights, telemetry samples and flight events
// through gorm, and optionally streams samples to InfluxDB.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opd-ai/go-rocketsim/pkg/config"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MemoryDSN is the shared in-memory sqlite database.
const MemoryDSN = "file::memory:?cache=shared"

// ErrDisabled is returned by Open when storage is turned off.
var ErrDisabled = errors.New("storage disabled")

var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
	"PRAGMA foreign_keys = ON;",
}

// Store wraps the database handle.
type Store struct {
	DB     *gorm.DB
	driver string
}

// Open connects to the configured database and migrates the schema.
func Open(cfg config.StorageConfig) (*Store, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		db, err = openSQLite(cfg.DSN)
	case DriverPostgres:
		db, err = openPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	return &Store{DB: db, driver: driver}, nil
}

func openSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

func openPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres requires a DSN")
	}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	return db, nil
}

// Driver returns the database driver name.
func (s *Store) Driver() string { return s.driver }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Flights returns recorded flights, newest first.
func (s *Store) Flights(ctx context.Context, limit int) ([]FlightRecord, error) {
	var out []FlightRecord
	q := s.DB.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Flight returns one flight record.
func (s *Store) Flight(ctx context.Context, id uint) (FlightRecord, error) {
	var rec FlightRecord
	err := s.DB.WithContext(ctx).First(&rec, id).Error
	return rec, err
}

// Samples returns the telemetry of a flight in time order.
func (s *Store) Samples(ctx context.Context, flightRecordID uint) ([]FlightSample, error) {
	var out []FlightSample
	err := s.DB.WithContext(ctx).
		Where("flight_record_id = ?", flightRecordID).
		Order("time asc").
		Find(&out).Error
	return out, err
}

// Events returns the discrete events of a flight in insertion order.
func (s *Store) Events(ctx context.Context, flightRecordID uint) ([]FlightEventRecord, error) {
	var out []FlightEventRecord
	err := s.DB.WithContext(ctx).
		Where("flight_record_id = ?", flightRecordID).
		Order("id asc").
		Find(&out).Error
	return out, err
}
