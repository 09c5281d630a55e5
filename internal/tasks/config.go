package tasks

import "time"

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration

	// ExportTimeout bounds a single async export. Default: 2m
	ExportTimeout time.Duration

	// AuditRetentionDays is passed to scheduled audit cleanups. Default: 30
	AuditRetentionDays int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:            2,
		ReleaseAfter:       15 * time.Minute,
		CleanupInterval:    1 * time.Hour,
		ExportTimeout:      2 * time.Minute,
		AuditRetentionDays: 30,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = d.ReleaseAfter
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = d.ExportTimeout
	}
	if c.AuditRetentionDays <= 0 {
		c.AuditRetentionDays = d.AuditRetentionDays
	}
	return c
}
