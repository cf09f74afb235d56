package storage

import (
	"strconv"
	"time"
)

// Config holds database configuration settings
type Config struct {
	Path         string
	MaxReadConns int
	BusyTimeout  time.Duration
	CacheSizeKB  int
}

// DefaultConfig returns default database configuration
func DefaultConfig(path string) *Config {
	return &Config{
		Path:         path,
		MaxReadConns: 4,
		BusyTimeout:  5 * time.Second,
		CacheSizeKB:  16000,
	}
}

// pragmas are applied once on the write connection. WAL lets the read pool
// run alongside the single writer.
func (c *Config) pragmas() []string {
	return []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = memory",
		"PRAGMA busy_timeout = " + strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10),
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -" + strconv.Itoa(c.CacheSizeKB),
	}
}
