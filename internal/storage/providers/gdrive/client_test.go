package gdrive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eztutor/drive-export/internal/storage"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		APIURL:    server.URL,
		UploadURL: server.URL + "/upload",
		Timeout:   5 * time.Second,
	})
}

type multipartUpload struct {
	meta      fileMetadata
	mediaType string
	media     []byte
}

func readMultipart(t *testing.T, r *http.Request) multipartUpload {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/related", mediaType)

	mr := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := mr.NextPart()
	require.NoError(t, err)
	var up multipartUpload
	require.NoError(t, json.NewDecoder(metaPart).Decode(&up.meta))

	mediaPart, err := mr.NextPart()
	require.NoError(t, err)
	up.mediaType = mediaPart.Header.Get("Content-Type")
	up.media, err = io.ReadAll(mediaPart)
	require.NoError(t, err)
	return up
}

func TestFindFolder(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/drive/v3/files", r.URL.Path)
			assert.Equal(t, "Bearer ya29.token", r.Header.Get("Authorization"))
			q := r.URL.Query().Get("q")
			assert.Contains(t, q, `name='Tutor\'s Notes'`)
			assert.Contains(t, q, "'parent-1' in parents")
			assert.Contains(t, q, "trashed=false")
			_, _ = w.Write([]byte(`{"files":[{"id":"folder-9","name":"Tutor's Notes"}]}`))
		}))

		id, found, err := c.FindFolder(context.Background(), "ya29.token", "Tutor's Notes", "parent-1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "folder-9", id)
	})

	t.Run("root lookup has no parent clause", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotContains(t, r.URL.Query().Get("q"), "in parents")
			_, _ = w.Write([]byte(`{"files":[]}`))
		}))

		_, found, err := c.FindFolder(context.Background(), "tok", "EZTutor", "")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestCreateFolder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var meta fileMetadata
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		assert.Equal(t, "Quizzes", meta.Name)
		assert.Equal(t, storage.MimeTypeFolder, meta.MimeType)
		assert.Equal(t, []string{"root-1"}, meta.Parents)
		_, _ = w.Write([]byte(`{"id":"folder-2"}`))
	}))

	id, err := c.CreateFolder(context.Background(), "tok", "Quizzes", "root-1")
	require.NoError(t, err)
	assert.Equal(t, "folder-2", id)
}

func TestCreateDocument(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/drive/v3/files", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		up := readMultipart(t, r)
		assert.Equal(t, "Photosynthesis", up.meta.Name)
		assert.Equal(t, storage.MimeTypeDocument, up.meta.MimeType)
		assert.Equal(t, []string{"topic-1"}, up.meta.Parents)
		assert.Equal(t, storage.MimeTypeHTML, up.mediaType)
		assert.Equal(t, "<h1>Photosynthesis</h1>", string(up.media))

		_, _ = w.Write([]byte(`{"id":"doc-1","name":"Photosynthesis","webViewLink":"https://docs.google.com/document/d/doc-1"}`))
	}))

	info, err := c.CreateDocument(context.Background(), "tok", "Photosynthesis", "topic-1", "<h1>Photosynthesis</h1>")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", info.ID)
	assert.Equal(t, "https://docs.google.com/document/d/doc-1", info.WebViewLink)
}

func TestExportAndUpload(t *testing.T) {
	docx := []byte("PK\x03\x04fake-docx")
	mux := http.NewServeMux()
	mux.HandleFunc("/drive/v3/files/doc-1/export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, storage.MimeTypeDocx, r.URL.Query().Get("mimeType"))
		_, _ = w.Write(docx)
	})
	mux.HandleFunc("/upload/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		up := readMultipart(t, r)
		assert.Equal(t, "Photosynthesis.docx", up.meta.Name)
		assert.Empty(t, up.meta.MimeType)
		assert.Equal(t, storage.MimeTypeDocx, up.mediaType)
		assert.Equal(t, docx, up.media)
		_, _ = w.Write([]byte(`{"id":"docx-1","name":"Photosynthesis.docx","webViewLink":"https://drive.google.com/file/d/docx-1"}`))
	})
	c := newTestClient(t, mux)

	data, err := c.ExportFile(context.Background(), "tok", "doc-1", storage.MimeTypeDocx)
	require.NoError(t, err)
	assert.Equal(t, docx, data)

	info, err := c.UploadFile(context.Background(), "tok", "Photosynthesis.docx", "topic-1", storage.MimeTypeDocx, data)
	require.NoError(t, err)
	assert.Equal(t, "docx-1", info.ID)
}

func TestErrorClassification(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   error
		reason string
	}{
		"server error": {
			status: http.StatusInternalServerError,
			body:   `{"error":{"code":500,"message":"Internal Error","errors":[{"reason":"backendError"}]}}`,
			want:   storage.ErrTransient,
			reason: "backendError",
		},
		"rate limited 403": {
			status: http.StatusForbidden,
			body:   `{"error":{"code":403,"message":"User Rate Limit Exceeded","errors":[{"reason":"userRateLimitExceeded"}]}}`,
			want:   storage.ErrTransient,
			reason: "userRateLimitExceeded",
		},
		"forbidden": {
			status: http.StatusForbidden,
			body:   `{"error":{"code":403,"message":"Insufficient permissions","errors":[{"reason":"insufficientFilePermissions"}]}}`,
			want:   storage.ErrPermanent,
			reason: "insufficientFilePermissions",
		},
		"bad request": {
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"Invalid query"}}`,
			want:   storage.ErrPermanent,
		},
		"unauthorized": {
			status: http.StatusUnauthorized,
			body:   `{"error":{"code":401,"message":"Invalid Credentials","errors":[{"reason":"authError"}]}}`,
			want:   storage.ErrUnauthorized,
			reason: "authError",
		},
		"non-json body": {
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			want:   storage.ErrTransient,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))

			_, err := c.CreateFolder(context.Background(), "tok", "x", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var pe *storage.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.status, pe.StatusCode)
			assert.Equal(t, tc.reason, pe.Reason)
		})
	}
}

func TestTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	c := NewClient(Config{APIURL: server.URL, UploadURL: server.URL, Timeout: 50 * time.Millisecond})

	_, _, err := c.FindFolder(context.Background(), "tok", "EZTutor", "")
	require.Error(t, err)
	assert.True(t, storage.IsTransient(err))
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `it\'s`, escapeQuery("it's"))
	assert.Equal(t, `a\\b`, escapeQuery(`a\b`))
	assert.False(t, strings.Contains(escapeQuery("plain"), `\`))
}
