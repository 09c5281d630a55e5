package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/entities"
)

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestExportsController(t *testing.T) {
	ledger := &fakeLedger{
		entries: []entities.DriveExport{
			{ID: 1, UserID: testUserID, ContentType: entities.ContentTypeLesson, ContentID: 3, ProviderFileID: "f1"},
			{ID: 2, UserID: testUserID, ContentType: entities.ContentTypeQuiz, ContentID: 4, ProviderFileID: "f2"},
		},
		total: 5,
	}
	queue := &fakeQueueReader{items: []entities.ExportRetryItem{{ID: 9, ContentType: entities.ContentTypeQuiz, ContentID: 4, Attempts: 2}}}
	failures := &fakeFailures{failures: []entities.ExportFailure{{ID: 1, Reason: "drive rejected request"}}}
	controller := NewExportsController(ledger, queue, failures, zap.NewNop())

	router := gin.New()
	router.Use(withUser(testUserID))
	router.GET("/api/exports", controller.ListExports)
	router.GET("/api/exports/queue", controller.ListQueue)
	router.GET("/api/exports/failures", controller.ListFailures)

	t.Run("lists ledger with pagination", func(t *testing.T) {
		w := serve(router, "GET", "/api/exports?limit=2&offset=2")

		require.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Data    []entities.DriveExport `json:"data"`
			Total   int64                  `json:"total"`
			HasMore bool                   `json:"has_more"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Data, 2)
		assert.Equal(t, int64(5), response.Total)
		assert.True(t, response.HasMore)
		assert.Equal(t, 2, ledger.limit)
		assert.Equal(t, 2, ledger.offset)
	})

	t.Run("lists retry queue", func(t *testing.T) {
		w := serve(router, "GET", "/api/exports/queue")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"attempts":2`)
	})

	t.Run("lists failures with clamped limit", func(t *testing.T) {
		w := serve(router, "GET", "/api/exports/failures?limit=1000")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "drive rejected request")
		assert.Equal(t, 200, failures.limit)
	})

	t.Run("ledger error", func(t *testing.T) {
		ledger.err = errBoom
		defer func() { ledger.err = nil }()

		w := serve(router, "GET", "/api/exports")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAuditController_GetAuditEvents(t *testing.T) {
	reader := &fakeAuditReader{
		events: []entities.AuditEvent{{ID: 1, UserID: testUserID, EventType: entities.AuditEventExport}},
		total:  51,
	}
	router := gin.New()
	router.Use(withUser(testUserID))
	router.GET("/api/audit", NewAuditController(reader).GetAuditEvents)

	t.Run("paginates", func(t *testing.T) {
		w := serve(router, "GET", "/api/audit?limit=25&page=2")

		require.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(3), response["total_pages"])
		assert.Equal(t, float64(2), response["page"])
	})

	t.Run("filters by type", func(t *testing.T) {
		w := serve(router, "GET", "/api/audit?type=auth")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, entities.AuditEventAuth, reader.eventType)
	})

	t.Run("reader error", func(t *testing.T) {
		reader.err = errBoom
		defer func() { reader.err = nil }()

		w := serve(router, "GET", "/api/audit")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestTasksController_GetTaskStatus(t *testing.T) {
	queue := &fakeTaskQueue{statuses: map[string]backlite.TaskStatus{
		"running-task": backlite.TaskStatusRunning,
		"done-task":    backlite.TaskStatusSuccess,
	}}
	router := gin.New()
	router.GET("/api/tasks/:id", NewTasksController(queue, zap.NewNop()).GetTaskStatus)

	w := serve(router, "GET", "/api/tasks/running-task")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"running-task","status":"running"}`, w.Body.String())

	w = serve(router, "GET", "/api/tasks/done-task")
	assert.JSONEq(t, `{"id":"done-task","status":"success"}`, w.Body.String())

	w = serve(router, "GET", "/api/tasks/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskStatusToString(t *testing.T) {
	assert.Equal(t, "pending", taskStatusToString(backlite.TaskStatusPending))
	assert.Equal(t, "failure", taskStatusToString(backlite.TaskStatusFailure))
	assert.Equal(t, "not_found", taskStatusToString(backlite.TaskStatusNotFound))
}
