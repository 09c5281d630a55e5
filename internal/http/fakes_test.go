package http

import (
	"context"
	"errors"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/eztutor/drive-export/internal/auth"
	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/oauth2"
)

const testUserID = uint(7)

// withUser stands in for the auth middleware.
func withUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, userID)
		c.Next()
	}
}

type exportCall struct {
	userID      uint
	contentType string
	contentID   uint
}

type fakeExporter struct {
	result *entities.ExportResult
	err    error
	calls  []exportCall
}

func (f *fakeExporter) Export(_ context.Context, userID uint, rawType string, contentID uint) (*entities.ExportResult, error) {
	f.calls = append(f.calls, exportCall{userID: userID, contentType: rawType, contentID: contentID})
	return f.result, f.err
}

type fakeTaskQueue struct {
	mu       sync.Mutex
	tasks    []backlite.Task
	err      error
	statuses map[string]backlite.TaskStatus
}

func (f *fakeTaskQueue) Enqueue(task backlite.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.tasks = append(f.tasks, task)
	return "task-1", nil
}

func (f *fakeTaskQueue) Status(_ context.Context, taskID string) (backlite.TaskStatus, error) {
	if f.err != nil {
		return backlite.TaskStatusNotFound, f.err
	}
	status, ok := f.statuses[taskID]
	if !ok {
		return backlite.TaskStatusNotFound, nil
	}
	return status, nil
}

type fakeTokens struct {
	consentURL    string
	consentErr    error
	lastPending   *oauth2.PendingExport
	status        *entities.OAuthStatus
	disconnectErr error
	disconnected  []uint
}

func (f *fakeTokens) ConsentURL(_ uint, pending *oauth2.PendingExport) (string, error) {
	f.lastPending = pending
	return f.consentURL, f.consentErr
}

func (f *fakeTokens) Status(uint) (*entities.OAuthStatus, error) {
	if f.status == nil {
		return &entities.OAuthStatus{}, nil
	}
	return f.status, nil
}

func (f *fakeTokens) Disconnect(userID uint) error {
	if f.disconnectErr != nil {
		return f.disconnectErr
	}
	f.disconnected = append(f.disconnected, userID)
	return nil
}

type fakeFlow struct {
	result *oauth2.FlowResult
	err    error
}

func (f *fakeFlow) CompleteWebFlow(context.Context, string, string) (*oauth2.FlowResult, error) {
	return f.result, f.err
}

type fakeRetryQueue struct {
	items []entities.ExportRetryItem
	err   error
}

func (f *fakeRetryQueue) Enqueue(_ context.Context, userID uint, contentType entities.ContentType, contentID uint) (*entities.ExportRetryItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	item := entities.ExportRetryItem{
		UserID:      userID,
		ContentType: contentType,
		ContentID:   contentID,
	}
	item.ID = uint(len(f.items) + 1)
	f.items = append(f.items, item)
	return &item, nil
}

type fakeAuditor struct {
	connects    []uint
	disconnects []uint
}

func (f *fakeAuditor) LogConnect(userID uint, _ error) { f.connects = append(f.connects, userID) }
func (f *fakeAuditor) LogDisconnect(userID uint)       { f.disconnects = append(f.disconnects, userID) }

type fakeLedger struct {
	entries []entities.DriveExport
	total   int64
	err     error
	limit   int
	offset  int
}

func (f *fakeLedger) ListByUser(_ context.Context, _ uint, limit, offset int) ([]entities.DriveExport, int64, error) {
	f.limit, f.offset = limit, offset
	return f.entries, f.total, f.err
}

type fakeQueueReader struct {
	items []entities.ExportRetryItem
}

func (f *fakeQueueReader) ListByUser(context.Context, uint) ([]entities.ExportRetryItem, error) {
	return f.items, nil
}

type fakeFailures struct {
	failures []entities.ExportFailure
	limit    int
}

func (f *fakeFailures) ListByUser(_ context.Context, _ uint, limit int) ([]entities.ExportFailure, error) {
	f.limit = limit
	return f.failures, nil
}

type fakeAuditReader struct {
	events    []entities.AuditEvent
	total     int64
	eventType entities.AuditEventType
	err       error
}

func (f *fakeAuditReader) GetEvents(uint, int, int) ([]entities.AuditEvent, int64, error) {
	return f.events, f.total, f.err
}

func (f *fakeAuditReader) GetEventsByType(eventType entities.AuditEventType, _ uint, _, _ int) ([]entities.AuditEvent, int64, error) {
	f.eventType = eventType
	return f.events, f.total, f.err
}

var errBoom = errors.New("boom")
