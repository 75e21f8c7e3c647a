package entity

import "time"

const MaxFileSize = 10 << 20

// AllowedFileExtensions maps accepted extensions to the content types accepted for them.
var AllowedFileExtensions = map[string][]string{
	".pdf":  {"application/pdf"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".txt":  {"text/plain"},
	".csv":  {"text/csv", "text/plain", "application/vnd.ms-excel"},
	".json": {"application/json", "text/plain"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
}

type File struct {
	ID          int       `json:"id"`
	TaskID      int       `json:"task_id"`
	UserID      int       `json:"user_id"`
	Filename    string    `json:"filename"`
	StoredName  string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	IsDeleted   bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type UploadFileRequest struct {
	TaskID      int
	Filename    string
	ContentType string
	Size        int64
}
