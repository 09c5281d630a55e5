// Package storage defines the cloud document store used by the export
// pipeline and the error taxonomy its providers report.
package storage

import (
	"context"
)

// Well-known MIME types.
const (
	MimeTypeFolder   = "application/vnd.google-apps.folder"
	MimeTypeDocument = "application/vnd.google-apps.document"
	MimeTypeHTML     = "text/html"
	MimeTypeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// FileInfo contains metadata about a file or folder in cloud storage
type FileInfo struct {
	ID          string // Provider-specific identifier
	Name        string
	MimeType    string
	WebViewLink string
}

// Client defines the document operations the export pipeline needs. Every
// call takes the caller's access token; the client holds no credentials.
type Client interface {
	// FindFolder looks up a folder by exact name under parentID ("" for root).
	FindFolder(ctx context.Context, accessToken, name, parentID string) (id string, found bool, err error)

	// CreateFolder creates a folder under parentID ("" for root).
	CreateFolder(ctx context.Context, accessToken, name, parentID string) (string, error)

	// CreateDocument creates a native document from an HTML body.
	CreateDocument(ctx context.Context, accessToken, name, parentID, html string) (*FileInfo, error)

	// ExportFile converts a native document to mimeType and returns the bytes.
	ExportFile(ctx context.Context, accessToken, fileID, mimeType string) ([]byte, error)

	// UploadFile uploads raw content as a new file under parentID.
	UploadFile(ctx context.Context, accessToken, name, parentID, mimeType string, content []byte) (*FileInfo, error)
}
