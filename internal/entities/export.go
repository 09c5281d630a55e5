package entities

import "time"

// ExportRetryItem is a pending export attempt. LeaseOwner and
// LeaseExpiresAt are set by the worker's atomic claim and cleared when the
// item is rescheduled.
type ExportRetryItem struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	UserID         uint        `gorm:"index;not null" json:"userId"`
	ContentType    ContentType `gorm:"size:20;not null" json:"contentType"`
	ContentID      uint        `gorm:"not null" json:"contentId"`
	Attempts       int         `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt  time.Time   `gorm:"index;not null" json:"nextAttemptAt"`
	LastError      string      `gorm:"size:500" json:"lastError,omitempty"`
	LeaseOwner     *string     `gorm:"size:64" json:"-"`
	LeaseExpiresAt *time.Time  `gorm:"index" json:"-"`
	CreatedAt      time.Time   `json:"createdAt"`
}

func (ExportRetryItem) TableName() string {
	return "export_retry_queue"
}

// DriveExport is an append-only record of a confirmed export.
type DriveExport struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	UserID          uint        `gorm:"index;not null" json:"userId"`
	ContentType     ContentType `gorm:"size:20;not null;index:idx_drive_export_content" json:"contentType"`
	ContentID       uint        `gorm:"not null;index:idx_drive_export_content" json:"contentId"`
	ProviderFileID  string      `gorm:"size:255;not null" json:"providerFileId"`
	ProviderFileURL string      `gorm:"size:2048" json:"providerFileUrl"`
	ExportedAt      time.Time   `gorm:"index" json:"exportedAt"`
}

func (DriveExport) TableName() string {
	return "google_drive_exports"
}

// ExportFailure is a dead-letter record for an export the worker gave up on.
type ExportFailure struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      uint        `gorm:"index;not null" json:"userId"`
	ContentType ContentType `gorm:"size:20;not null" json:"contentType"`
	ContentID   uint        `gorm:"not null" json:"contentId"`
	Attempts    int         `json:"attempts"`
	Reason      string      `gorm:"size:1000" json:"reason"`
	FailedAt    time.Time   `gorm:"index" json:"failedAt"`
}

func (ExportFailure) TableName() string {
	return "export_failures"
}

// ExportResult is what the pipeline returns on success.
type ExportResult struct {
	FileID     string `json:"fileId"`
	FileURL    string `json:"fileUrl"`
	Name       string `json:"name"`
	FolderPath string `json:"folderPath"`
	DocxID     string `json:"docxId,omitempty"`
	DocxURL    string `json:"docxUrl,omitempty"`
}

// HasDocx reports whether the portable copy was uploaded.
func (r *ExportResult) HasDocx() bool {
	return r.DocxID != ""
}

// LedgerRef returns the id and URL recorded in the ledger, preferring the
// portable copy over the native document.
func (r *ExportResult) LedgerRef() (string, string) {
	if r.HasDocx() {
		return r.DocxID, r.DocxURL
	}
	return r.FileID, r.FileURL
}
