package models

import "time"

// ============================================================
// Asset
// ============================================================

// Asset: загруженный файл владельца. В data компонентов попадает только URL.
type Asset struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
