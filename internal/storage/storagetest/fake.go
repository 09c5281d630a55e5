// Package storagetest provides an in-memory storage.Client for tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/eztutor/drive-export/internal/storage"
)

// File is a stored object in the fake.
type File struct {
	ID       string
	Name     string
	ParentID string
	MimeType string
	Content  []byte
}

// Client is an in-memory storage.Client. Per-operation error hooks let tests
// inject provider failures.
type Client struct {
	mu     sync.Mutex
	nextID int
	files  map[string]*File
	calls  map[string]int

	FindErr     error
	CreateErr   error
	DocumentErr error
	ExportErr   error
	UploadErr   error
}

var _ storage.Client = (*Client)(nil)

func NewClient() *Client {
	return &Client{
		files: make(map[string]*File),
		calls: make(map[string]int),
	}
}

func (c *Client) newID(prefix string) string {
	c.nextID++
	return fmt.Sprintf("%s-%d", prefix, c.nextID)
}

func (c *Client) FindFolder(ctx context.Context, accessToken, name, parentID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["find"]++
	if c.FindErr != nil {
		return "", false, c.FindErr
	}
	for _, f := range c.files {
		if f.MimeType == storage.MimeTypeFolder && f.Name == name && f.ParentID == parentID {
			return f.ID, true, nil
		}
	}
	return "", false, nil
}

func (c *Client) CreateFolder(ctx context.Context, accessToken, name, parentID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["create_folder"]++
	if c.CreateErr != nil {
		return "", c.CreateErr
	}
	id := c.newID("folder")
	c.files[id] = &File{ID: id, Name: name, ParentID: parentID, MimeType: storage.MimeTypeFolder}
	return id, nil
}

func (c *Client) CreateDocument(ctx context.Context, accessToken, name, parentID, html string) (*storage.FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["create_document"]++
	if c.DocumentErr != nil {
		return nil, c.DocumentErr
	}
	id := c.newID("doc")
	c.files[id] = &File{ID: id, Name: name, ParentID: parentID, MimeType: storage.MimeTypeDocument, Content: []byte(html)}
	return &storage.FileInfo{
		ID:          id,
		Name:        name,
		MimeType:    storage.MimeTypeDocument,
		WebViewLink: "https://docs.google.com/document/d/" + id,
	}, nil
}

func (c *Client) ExportFile(ctx context.Context, accessToken, fileID, mimeType string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["export"]++
	if c.ExportErr != nil {
		return nil, c.ExportErr
	}
	f, ok := c.files[fileID]
	if !ok {
		return nil, &storage.ProviderError{Op: "export file", StatusCode: 404, Err: storage.ErrNotFound}
	}
	return append([]byte("converted:"), f.Content...), nil
}

func (c *Client) UploadFile(ctx context.Context, accessToken, name, parentID, mimeType string, content []byte) (*storage.FileInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["upload"]++
	if c.UploadErr != nil {
		return nil, c.UploadErr
	}
	id := c.newID("file")
	c.files[id] = &File{ID: id, Name: name, ParentID: parentID, MimeType: mimeType, Content: content}
	return &storage.FileInfo{
		ID:          id,
		Name:        name,
		MimeType:    mimeType,
		WebViewLink: "https://drive.google.com/file/d/" + id,
	}, nil
}

// Calls returns how many times op was invoked. Ops: find, create_folder,
// create_document, export, upload.
func (c *Client) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// File returns a copy of the stored object with id.
func (c *Client) File(id string) (File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.files[id]
	if !ok {
		return File{}, false
	}
	return *f, true
}

// Folders returns the number of folders named name under parentID.
func (c *Client) Folders(name, parentID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, f := range c.files {
		if f.MimeType == storage.MimeTypeFolder && f.Name == name && f.ParentID == parentID {
			n++
		}
	}
	return n
}
