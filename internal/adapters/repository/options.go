package repository

import "gorm.io/gorm/logger"

// Defaults for the SQLite store.
const (
	DefaultDBFile       = "varbox.sqlite3"
	defaultMaxOpenConns = 4
	defaultBatchSize    = 200
)

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) SQLiteOption {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithBatchSize sets how many child rows are written per insert.
func WithBatchSize(n int) SQLiteOption {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogLevel sets the gorm log level. Silent by default.
func WithLogLevel(level logger.LogLevel) SQLiteOption {
	return func(s *SQLiteStore) { s.logLevel = level }
}
