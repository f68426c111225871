package storage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"laborgrow/internal/config"
	"laborgrow/internal/storage/models"
)

// Database is the relational store surface the handlers depend on.
type Database interface {
	// DB returns the underlying GORM handle.
	DB() *gorm.DB

	// Close closes the connection pool.
	Close() error
}

var _ Database = (*MySQL)(nil)

// MySQL provides the relational store.
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL connects to MySQL and migrates the profile and application
// tables. The jobs table is deliberately excluded from migration: it is
// owned by the hosted backend and its column set is discovered at write
// time by the adaptive insert loop.
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config cannot be nil")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	log.Println("connected to MySQL and migrated schema")
	return m, nil
}

// autoMigrateSchema migrates the tables this service owns.
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	// Note: models.Job is read-only and intentionally absent here.
	err := silentDB.AutoMigrate(
		&models.Employer{},
		&models.Employee{},
		&models.JobApplication{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})
	return err
}

// DB returns the GORM handle.
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close closes the connection pool.
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertRecord persists a single row built from parallel column/value
// slices and returns the auto-assigned identifier. Backend errors are
// returned with their message text intact: the schema-mismatch classifier
// parses it. An id of 0 with a nil error means the store accepted the
// write without confirming it.
func (m *MySQL) InsertRecord(ctx context.Context, table string, columns []string, values []interface{}) (int64, error) {
	if len(columns) == 0 || len(columns) != len(values) {
		return 0, fmt.Errorf("invalid record: %d columns, %d values", len(columns), len(values))
	}

	var b strings.Builder
	b.WriteString("INSERT INTO `")
	b.WriteString(table)
	b.WriteString("` (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("`")
		b.WriteString(col)
		b.WriteString("`")
	}
	b.WriteString(") VALUES (")
	for i := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	b.WriteString(")")

	sqlDB, err := m.db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	result, err := sqlDB.ExecContext(ctx, b.String(), values...)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		// The write went through but the store produced no identifier.
		return 0, nil
	}
	return id, nil
}

// JobWithDistance is a nearby-search result row.
type JobWithDistance struct {
	models.Job
	DistanceKM float64 `gorm:"column:distance_km" json:"distance_km"`
}

// SearchJobsNearby runs the server-side geospatial distance query against
// the jobs table (haversine over the speculative lat/lng columns). Rows
// without coordinates are skipped.
func (m *MySQL) SearchJobsNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]JobWithDistance, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []JobWithDistance
	err := m.db.WithContext(ctx).Raw(`
		SELECT id, employer_id, title, company_name, openings, job_city,
		       total_experience, salary_min, salary_max, offers_bonus,
		       hiring_speed, hiring_frequency, created_at,
		       (6371 * ACOS(
		           COS(RADIANS(?)) * COS(RADIANS(lat)) *
		           COS(RADIANS(lng) - RADIANS(?)) +
		           SIN(RADIANS(?)) * SIN(RADIANS(lat))
		       )) AS distance_km
		FROM jobs
		WHERE lat IS NOT NULL AND lng IS NOT NULL
		HAVING distance_km <= ?
		ORDER BY distance_km ASC
		LIMIT ?`,
		lat, lng, lat, radiusKM, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("nearby job search failed: %w", err)
	}
	return rows, nil
}
