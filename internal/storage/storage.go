package storage

import (
	"context"
	"fmt"
	"strings"

	"laborgrow/internal/config"
	"laborgrow/internal/logger"
)

// Storage aggregates every backing store the service talks to. MySQL is
// mandatory; the others degrade to nil when unconfigured or unreachable so
// the service can still take job traffic.
type Storage struct {
	MySQL    *MySQL
	Redis    *Redis
	RabbitMQ *RabbitMQ
	MinIO    *MinIO
}

// NewStorage connects all configured backends.
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	storage := &Storage{}
	var err error
	var initErrors []string

	storage.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("initialize MySQL: %w", err)
	}

	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Redis, caching disabled")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
			storage.Redis = nil
		}
	} else {
		logger.Info().Msg("Redis not configured, skipping")
	}

	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize RabbitMQ, event publishing disabled")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
			storage.RabbitMQ = nil
		}
	} else {
		logger.Info().Msg("RabbitMQ not configured, skipping")
	}

	if cfg.MinIO.Endpoint != "" {
		storage.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize MinIO, resume uploads disabled")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
			storage.MinIO = nil
		}
	} else {
		logger.Info().Msg("MinIO not configured, skipping")
	}

	if len(initErrors) > 0 {
		logger.Warn().Str("components", strings.Join(initErrors, "; ")).Msg("Some storage components failed to initialize")
	}

	return storage, nil
}

// ObjectStorage returns the resume store, or nil when MinIO is down or
// unconfigured. Callers get a clean nil interface, not a typed nil.
func (s *Storage) ObjectStorage() ObjectStorage {
	if s.MinIO == nil {
		return nil
	}
	return s.MinIO
}

// Close shuts down every open connection.
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close MySQL connection")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}
	// The MinIO client holds no persistent connection.
}
