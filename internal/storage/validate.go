package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// allowedContentTypes whitelists upload MIME types.
var allowedContentTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"image/webp":      {},
	"application/pdf": {},
	"text/plain":      {},
	"text/csv":        {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {},
}

// blockedExtensions rejects executable or script uploads regardless of the
// declared MIME type.
var blockedExtensions = map[string]struct{}{
	".exe": {},
	".bat": {},
	".cmd": {},
	".com": {},
	".msi": {},
	".dll": {},
	".scr": {},
	".sh":  {},
	".php": {},
	".js":  {},
	".jar": {},
	".vbs": {},
	".ps1": {},
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._\-]`)

// sanitizeFileName strips path components and characters unsafe in object keys.
func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	return unsafeKeyChars.ReplaceAllString(name, "_")
}

// UploadInput carries one file received from a multipart request.
type UploadInput struct {
	FileName    string
	ContentType string
	Body        []byte
}

// ValidateUpload enforces upload constraints before any network call.
func ValidateUpload(file UploadInput, maxSizeBytes int64) error {
	if strings.TrimSpace(file.FileName) == "" {
		return apperrors.NewValidationError("file name required", nil)
	}
	if len(file.Body) == 0 {
		return apperrors.NewValidationError("file is empty", map[string]any{"file": file.FileName})
	}
	if maxSizeBytes > 0 && int64(len(file.Body)) > maxSizeBytes {
		return apperrors.NewValidationError(
			fmt.Sprintf("file exceeds maximum size of %d bytes", maxSizeBytes),
			map[string]any{"file": file.FileName, "size": len(file.Body)})
	}

	contentType := strings.ToLower(strings.TrimSpace(file.ContentType))
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if _, ok := allowedContentTypes[contentType]; !ok {
		return apperrors.NewValidationError("file type not allowed", map[string]any{"file": file.FileName, "content_type": contentType})
	}

	ext := strings.ToLower(filepath.Ext(file.FileName))
	if _, blocked := blockedExtensions[ext]; blocked {
		return apperrors.NewValidationError("file extension not allowed", map[string]any{"file": file.FileName, "extension": ext})
	}

	return nil
}
