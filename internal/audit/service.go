// Package audit records user-visible history of exports and credential
// changes.
package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/clock"
	"github.com/eztutor/drive-export/internal/database/audit"
	"github.com/eztutor/drive-export/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo   *audit.Repository
	clock  clock.Clock
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, logger *zap.Logger, clk clock.Clock) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{repo: repo, clock: clk, logger: logger}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock.Now()
	}
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock.Now()
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			s.logger.Warn("failed to log audit event",
				zap.String("action", event.Action),
				zap.Uint("user_id", event.UserID),
				zap.Error(err),
			)
		}
	}()
}

// Flush blocks until every pending LogAsync write has finished.
func (s *Service) Flush() {
	s.wg.Wait()
}

// LogExport records a drive export attempt for one content record.
func (s *Service) LogExport(userID uint, contentType entities.ContentType, contentID uint, fileURL string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventExport,
		Action:      "drive_export",
		Description: fmt.Sprintf("Exported %s %d to Google Drive", contentType, contentID),
		EntityType:  string(contentType),
		EntityID:    &contentID,
		Status:      entities.AuditStatusSuccess,
	}
	if fileURL != "" {
		event.Metadata = metadata(map[string]any{"file_url": fileURL})
	}

	if err != nil {
		event.Description = fmt.Sprintf("Failed to export %s %d to Google Drive", contentType, contentID)
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogDeadLetter records an export the retry worker abandoned.
func (s *Service) LogDeadLetter(userID uint, contentType entities.ContentType, contentID uint, attempts int, reason string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventQueue,
		Action:      "export_abandoned",
		Description: fmt.Sprintf("Gave up exporting %s %d after %d attempts", contentType, contentID, attempts),
		EntityType:  string(contentType),
		EntityID:    &contentID,
		Metadata:    metadata(map[string]any{"attempts": attempts}),
		Status:      entities.AuditStatusFailed,
		ErrorMsg:    truncate(reason, 500),
	})
}

// LogConnect records the outcome of an OAuth consent callback.
func (s *Service) LogConnect(userID uint, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventAuth,
		Action:      "google_connect",
		Description: "Connected Google Drive",
		Status:      entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Description = "Failed to connect Google Drive"
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// LogDisconnect records removal of the stored Google credential.
func (s *Service) LogDisconnect(userID uint) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventAuth,
		Action:      "google_disconnect",
		Description: "Disconnected Google Drive",
		Status:      entities.AuditStatusSuccess,
	})
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(userID, limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(eventType, userID, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func metadata(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	n := maxLen - 3
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
