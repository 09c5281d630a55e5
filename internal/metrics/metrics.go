// Package metrics defines the counter/histogram sink used by the export
// subsystem. Components receive a Sink at construction and never touch
// process-wide metric state directly.
package metrics

import (
	"sync"
)

// Counter names.
const (
	ExportInlineSuccess      = "export_inline_success"
	ExportInlineQueued       = "export_inline_queued"
	ExportInlineFailed       = "export_inline_failed"
	ExportConsentRequired    = "export_consent_required"
	ExportLedgerWriteFailed  = "export_ledger_write_failed"
	ExportDocxFallback       = "export_docx_fallback"
	RetrySkippedNoToken      = "export_retry_skipped_no_token"
	RetryFailedRefresh       = "export_retry_failed_refresh"
	RetrySkippedMissing      = "export_retry_skipped_missing_content"
	RetrySuccess             = "export_retry_success"
	RetryError               = "export_retry_error"
	RetryGaveUp              = "export_retry_gave_up"
	RetryPermanentFailure    = "export_retry_permanent_failure"
	TokenRefreshed           = "token_refreshed"
	TokenRefreshTransient    = "token_refresh_transient"
	TokenRefreshInvalidGrant = "token_refresh_invalid_grant"
	FolderCacheHit           = "folder_cache_hit"
	FolderCacheMiss          = "folder_cache_miss"
)

// Histogram names. Values are seconds.
const (
	PipelineDuration = "export_pipeline_duration_seconds"
	RefreshDuration  = "token_refresh_duration_seconds"
)

// Sink receives counter increments and observations.
type Sink interface {
	Inc(name string)
	Observe(name string, value float64)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Inc(string) {}
func (Nop) Observe(string, float64) {}

// MemorySink records values in memory. Intended for tests and the
// drain-queue command's summary output.
type MemorySink struct {
	mu           sync.Mutex
	counters     map[string]int
	observations map[string][]float64
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		counters:     make(map[string]int),
		observations: make(map[string][]float64),
	}
}

func (m *MemorySink) Inc(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

func (m *MemorySink) Observe(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations[name] = append(m.observations[name], value)
}

// Count returns the current value of a counter.
func (m *MemorySink) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Observations returns a copy of the values observed for name.
func (m *MemorySink) Observations(name string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.observations[name]))
	copy(out, m.observations[name])
	return out
}

// Counters returns a snapshot of every counter.
func (m *MemorySink) Counters() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}
