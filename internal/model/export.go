package model

import "time"

// Export is the metadata row for one packaged archive. The archive bytes
// live in the blob store under BlobID; DownloadToken resolves them until
// ExpiresAt.
type Export struct {
	ID            string
	UserID        string
	FileName      string
	FileSize      int64
	DownloadToken string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	BlobID        string
}

// ExportResponse represents export metadata in API responses. The download
// token is included so the caller can fetch the archive.
type ExportResponse struct {
	ID            string    `json:"id"`
	FileName      string    `json:"file_name"`
	FileSize      int64     `json:"file_size"`
	DownloadToken string    `json:"download_token"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}
