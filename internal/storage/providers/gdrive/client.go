// Package gdrive implements storage.Client against the Google Drive v3 REST API.
package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/eztutor/drive-export/internal/storage"
)

const (
	defaultAPIURL    = "https://www.googleapis.com"
	defaultUploadURL = "https://www.googleapis.com/upload"

	// maxExportSize is Drive's limit for files.export responses.
	maxExportSize = 10 << 20

	fileFields = "id,name,mimeType,webViewLink"
)

var _ storage.Client = (*Client)(nil)

// Config configures the Drive client.
type Config struct {
	APIURL    string
	UploadURL string
	Timeout   time.Duration
}

// Client implements storage.Client for Google Drive
type Client struct {
	apiURL     string
	uploadURL  string
	httpClient *http.Client
}

// NewClient creates a new Drive storage client. The HTTP client always has
// a timeout; a zero Config.Timeout falls back to 30 seconds.
func NewClient(cfg Config) *Client {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	uploadURL := strings.TrimRight(cfg.UploadURL, "/")
	if uploadURL == "" {
		uploadURL = defaultUploadURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiURL:    apiURL,
		uploadURL: uploadURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type fileResource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	WebViewLink string `json:"webViewLink"`
}

func (f fileResource) toInfo() *storage.FileInfo {
	return &storage.FileInfo{
		ID:          f.ID,
		Name:        f.Name,
		MimeType:    f.MimeType,
		WebViewLink: f.WebViewLink,
	}
}

type fileMetadata struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}

// errorResponse is Google's JSON error envelope.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// escapeQuery quotes a value for use inside a Drive search string literal.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func (c *Client) FindFolder(ctx context.Context, accessToken, name, parentID string) (string, bool, error) {
	clauses := []string{
		fmt.Sprintf("name='%s'", escapeQuery(name)),
		fmt.Sprintf("mimeType='%s'", storage.MimeTypeFolder),
		"trashed=false",
	}
	if parentID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", escapeQuery(parentID)))
	}

	params := url.Values{}
	params.Set("q", strings.Join(clauses, " and "))
	params.Set("fields", "files(id,name)")
	params.Set("spaces", "drive")
	params.Set("pageSize", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/drive/v3/files?"+params.Encode(), nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}

	var listResp struct {
		Files []fileResource `json:"files"`
	}
	if err := c.doJSON(req, accessToken, "find folder", &listResp); err != nil {
		return "", false, err
	}

	if len(listResp.Files) == 0 {
		return "", false, nil
	}
	return listResp.Files[0].ID, true, nil
}

func (c *Client) CreateFolder(ctx context.Context, accessToken, name, parentID string) (string, error) {
	meta := fileMetadata{Name: name, MimeType: storage.MimeTypeFolder}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	body, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/drive/v3/files?fields=id", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var created fileResource
	if err := c.doJSON(req, accessToken, "create folder", &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) CreateDocument(ctx context.Context, accessToken, name, parentID, html string) (*storage.FileInfo, error) {
	meta := fileMetadata{Name: name, MimeType: storage.MimeTypeDocument, Parents: []string{parentID}}
	return c.multipartUpload(ctx, accessToken, "create document", meta, storage.MimeTypeHTML, []byte(html))
}

func (c *Client) UploadFile(ctx context.Context, accessToken, name, parentID, mimeType string, content []byte) (*storage.FileInfo, error) {
	meta := fileMetadata{Name: name, Parents: []string{parentID}}
	return c.multipartUpload(ctx, accessToken, "upload file", meta, mimeType, content)
}

func (c *Client) ExportFile(ctx context.Context, accessToken, fileID, mimeType string) ([]byte, error) {
	params := url.Values{}
	params.Set("mimeType", mimeType)
	endpoint := fmt.Sprintf("%s/drive/v3/files/%s/export?%s", c.apiURL, url.PathEscape(fileID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req, accessToken, "export file")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxExportSize+1))
	if err != nil {
		return nil, storage.NetworkError("export file", err)
	}
	if len(data) > maxExportSize {
		return nil, &storage.ProviderError{Op: "export file", Message: "export exceeds size limit", Err: storage.ErrPermanent}
	}
	return data, nil
}

// multipartUpload sends metadata and media in one multipart/related request.
func (c *Client) multipartUpload(
	ctx context.Context,
	accessToken, op string,
	meta fileMetadata,
	mediaType string,
	media []byte,
) (*storage.FileInfo, error) {
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata part: %w", err)
	}
	if _, err := metaPart.Write(metaBytes); err != nil {
		return nil, fmt.Errorf("failed to write metadata part: %w", err)
	}

	mediaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {mediaType}})
	if err != nil {
		return nil, fmt.Errorf("failed to create media part: %w", err)
	}
	if _, err := mediaPart.Write(media); err != nil {
		return nil, fmt.Errorf("failed to write media part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	endpoint := c.uploadURL + "/drive/v3/files?uploadType=multipart&fields=" + url.QueryEscape(fileFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	var created fileResource
	if err := c.doJSON(req, accessToken, op, &created); err != nil {
		return nil, err
	}
	return created.toInfo(), nil
}

// do executes req and returns the response on 2xx. Any other outcome is a
// classified *storage.ProviderError.
func (c *Client) do(req *http.Request, accessToken, op string) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, storage.NetworkError(op, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	pe := &storage.ProviderError{Op: op, StatusCode: resp.StatusCode, Message: string(body)}

	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		pe.Message = apiErr.Error.Message
		if len(apiErr.Error.Errors) > 0 {
			pe.Reason = apiErr.Error.Errors[0].Reason
		}
	}
	pe.Err = storage.ClassifyStatus(resp.StatusCode, pe.Reason)
	return nil, pe
}

func (c *Client) doJSON(req *http.Request, accessToken, op string, out interface{}) error {
	resp, err := c.do(req, accessToken, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return storage.NetworkError(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
