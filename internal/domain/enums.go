package domain

import (
	"path/filepath"
	"strings"
)

// FileType identifies one of the supported source formats.
type FileType string

const (
	FileTypeXLSX FileType = "xlsx"
	FileTypeDOCX FileType = "docx"
	FileTypePPTX FileType = "pptx"
)

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"xlsx": FileTypeXLSX,
	"docx": FileTypeDOCX,
	"pptx": FileTypePPTX,
}

// ContentTypes maps FileType to its MIME content type.
var ContentTypes = map[FileType]string{
	FileTypeXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FileTypeDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FileTypePPTX: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// DetectFileType resolves the FileType from a filename extension.
func DetectFileType(filename string) (FileType, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	ft, ok := AllowedExtensions[ext]
	if !ok {
		return "", ErrUnsupportedFormat
	}
	return ft, nil
}

// SessionStatus represents the lifecycle state of a parse session.
type SessionStatus string

const (
	SessionStatusPreviewed SessionStatus = "previewed"
	SessionStatusConfirmed SessionStatus = "confirmed"
	SessionStatusExpired   SessionStatus = "expired"
)
