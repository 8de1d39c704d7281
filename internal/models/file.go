package models

import "time"

// File statuses.
const (
	FileActive  = "active"
	FileDeleted = "deleted"
)

// UploadStatus tracks a resumable upload.
type UploadStatus string

const (
	UploadInitiated UploadStatus = "initiated"
	UploadReceiving UploadStatus = "receiving"
	UploadCommitted UploadStatus = "committed"
	UploadAborted   UploadStatus = "aborted"
)

// Finalized reports whether the upload can no longer change.
func (s UploadStatus) Finalized() bool {
	return s == UploadCommitted || s == UploadAborted
}

// FileEntry is a stored file. The URLs are filled in per response.
type FileEntry struct {
	ID           int64     `json:"id"`
	OriginalName string    `json:"original_name"`
	PublicName   string    `json:"public_name"`
	ContentType  string    `json:"content_type,omitempty"`
	Size         int64     `json:"size"`
	SHA256       string    `json:"sha256"`
	Status       string    `json:"status"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	DownloadURL  string    `json:"download_url,omitempty"`
	PublicURL    string    `json:"public_url,omitempty"`
}

// Upload is the server-side state of a chunked upload.
type Upload struct {
	ID             string       `json:"upload_id"`
	Filename       string       `json:"filename"`
	ExpectedSize   *int64       `json:"expected_size,omitempty"`
	ExpectedSHA256 string       `json:"expected_sha256,omitempty"`
	Status         UploadStatus `json:"status"`
	ReceivedBytes  int64        `json:"received_bytes"`
	NextIndex      int          `json:"next_index"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
