package validation

import (
	"bytes"
	"strings"

	"video-generation-api/internal/domain"
)

// Extensions that must never be accepted regardless of declared type.
var deniedExtensions = []string{
	".exe", ".sh", ".bat", ".cmd", ".com", ".pif", ".scr",
	".php", ".asp", ".jsp", ".js", ".html", ".htm",
}

// ImageFormat is the sniffed on-disk format of an upload.
type ImageFormat string

const (
	FormatJPEG    ImageFormat = "jpeg"
	FormatPNG     ImageFormat = "png"
	FormatWebP    ImageFormat = "webp"
	FormatUnknown ImageFormat = ""
)

// SniffImageFormat inspects the magic-number header. The declared MIME type
// is attacker-controlled; the first bytes are not.
func SniffImageFormat(data []byte) ImageFormat {
	if len(data) >= 3 && bytes.Equal(data[:3], []byte{0xff, 0xd8, 0xff}) {
		return FormatJPEG
	}
	if len(data) >= 8 && bytes.Equal(data[:8], []byte("\x89PNG\r\n\x1a\n")) {
		return FormatPNG
	}
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return FormatWebP
	}
	return FormatUnknown
}

// ValidateUploadedFile enforces the byte ceiling, the MIME allow-list, the
// magic-number check and filename hygiene for an uploaded image.
func ValidateUploadedFile(filename, declaredMIME string, data []byte, maxBytes int64, allowedMIMEs []string) error {
	if filename == "" {
		return domain.Validationf("no filename provided")
	}
	if int64(len(data)) > maxBytes {
		return domain.Validationf("file too large (max %d bytes)", maxBytes)
	}

	allowed := false
	for _, m := range allowedMIMEs {
		if strings.EqualFold(declaredMIME, m) {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.Validationf("invalid file type: %s", declaredMIME)
	}

	if SniffImageFormat(data) == FormatUnknown {
		return domain.Validationf("file content does not match declared type")
	}

	if strings.Contains(filename, "../") || strings.Contains(filename, `..\`) {
		return domain.Validationf("invalid filename")
	}
	if strings.HasPrefix(filename, "/") || strings.HasPrefix(filename, `\`) {
		return domain.Validationf("invalid filename")
	}
	lower := strings.ToLower(filename)
	for _, ext := range deniedExtensions {
		if strings.HasSuffix(lower, ext) {
			return domain.Validationf("suspicious file extension: %s", ext)
		}
	}
	return nil
}
