package http

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eztutor/drive-export/internal/auth"
	"github.com/eztutor/drive-export/internal/config"
	"github.com/eztutor/drive-export/internal/database"
	"github.com/eztutor/drive-export/internal/database/users"
	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/metrics"
)

func fullRouterConfig(t *testing.T, authCfg config.Auth) RouterConfig {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "router.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	service := auth.NewService(users.NewRepository(db.DB), authCfg)
	_, err = service.EnsureDefaultUser()
	require.NoError(t, err)

	return RouterConfig{
		Database:       db,
		Exporter:       &fakeExporter{result: &entities.ExportResult{FileID: "f", FileURL: "https://docs.google.com/document/d/f/edit"}},
		Logger:         zap.NewNop(),
		AuthMiddleware: auth.NewMiddleware(service, authCfg),
		Tokens:         &fakeTokens{consentURL: "https://accounts.google.com/auth"},
		Flow:           &fakeFlow{},
		FrontendURL:    "http://localhost:3000",
		RetryQueue:     &fakeRetryQueue{},
		Ledger:         &fakeLedger{},
		Queue:          &fakeQueueReader{},
		Failures:       &fakeFailures{},
		Auditor:        &fakeAuditor{},
		AuditReader:    &fakeAuditReader{},
		TaskClient:     &fakeTaskQueue{},
		MetricsHandler: metrics.NewPrometheusSink().Handler(),
		QueueBacklog:   fakeBacklog{due: 1},
		Version:        "test",
	}
}

func TestNewRouter_Routes(t *testing.T) {
	router := NewRouter(fullRouterConfig(t, config.Auth{Mode: config.AuthModeNone, DefaultUserID: 1}))

	paths := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/ping"},
		{"GET", "/metrics"},
		{"GET", "/api/auth/google"},
		{"GET", "/api/auth/google/status"},
		{"POST", "/api/auth/google/disconnect"},
		{"GET", "/api/exports"},
		{"GET", "/api/exports/queue"},
		{"GET", "/api/exports/failures"},
		{"GET", "/api/audit"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := serve(router, p.method, p.path)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		})
	}
}

func TestNewRouter_SecurityHeaders(t *testing.T) {
	router := NewRouter(fullRouterConfig(t, config.Auth{Mode: config.AuthModeNone, DefaultUserID: 1}))

	w := serve(router, "GET", "/ping")

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestNewRouter_TokenModeProtectsAPI(t *testing.T) {
	router := NewRouter(fullRouterConfig(t, config.Auth{Mode: config.AuthModeToken}))

	assert.Equal(t, http.StatusUnauthorized, serve(router, "GET", "/api/exports").Code)
	assert.Equal(t, http.StatusOK, serve(router, "GET", "/health").Code)
	// The consent callback arrives from Google without a bearer token.
	assert.NotEqual(t, http.StatusUnauthorized, serve(router, "GET", "/api/auth/google/callback?error=access_denied").Code)
}

func TestNewRouter_OptionalGroupsDisabled(t *testing.T) {
	router := NewRouter(RouterConfig{Logger: zap.NewNop()})

	assert.Equal(t, http.StatusOK, serve(router, "GET", "/ping").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, "GET", "/metrics").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, "GET", "/api/exports").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, "POST", "/api/export-to-drive").Code)
}
