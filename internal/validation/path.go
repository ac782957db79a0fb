package validation

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"video-generation-api/internal/domain"
)

var allowedFileExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
	".mp4": {}, ".webm": {}, ".avi": {}, ".mov": {},
}

// SafeJoin joins path components under base and verifies the result cannot
// escape it.
func SafeJoin(base string, parts ...string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", domain.Validationf("invalid base directory")
	}
	target := filepath.Join(append([]string{absBase}, parts...)...)
	target = filepath.Clean(target)
	if target != absBase && !strings.HasPrefix(target, absBase+string(filepath.Separator)) {
		return "", domain.Validationf("path traversal attempt")
	}
	return target, nil
}

// SafeFilename builds an unguessable filename with a validated extension.
// Prefix characters outside [A-Za-z0-9_-] are dropped.
func SafeFilename(extension, prefix string) (string, error) {
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	extension = strings.ToLower(extension)
	if _, ok := allowedFileExtensions[extension]; !ok {
		return "", domain.Validationf("invalid extension: %s", extension)
	}
	var b strings.Builder
	for _, r := range prefix {
		if r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	id := uuid.NewString()
	if b.Len() == 0 {
		return id + extension, nil
	}
	return b.String() + "_" + id + extension, nil
}

// ValidJobID reports whether id is a canonical UUID, the only job ID shape
// this service ever issues.
func ValidJobID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return parsed.String() == strings.ToLower(id)
}
