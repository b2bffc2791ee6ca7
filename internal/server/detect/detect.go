// Package detect resolves a media type from sniffed head bytes and a
// filename hint.
package detect

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// OctetStream is the generic fallback media type. Detectors never report
// it as a positive result.
const OctetStream = "application/octet-stream"

// Detector maps (head bytes, filename hint) to an optional media type.
type Detector interface {
	// Detect returns the media type and true, or false when nothing more
	// specific than octet-stream could be determined.
	Detect(head []byte, filenameHint string) (string, bool)
}

// MimeDetector detects from content first and falls back to the filename
// extension.
type MimeDetector struct{}

// NewMimeDetector returns the content-based detector.
func NewMimeDetector() *MimeDetector {
	return &MimeDetector{}
}

func (d *MimeDetector) Detect(head []byte, filenameHint string) (string, bool) {
	if len(head) > 0 {
		mt := mimetype.Detect(head).String()
		if !isGeneric(mt) {
			return mt, true
		}
	}
	if ext := filepath.Ext(filenameHint); ext != "" {
		if mt := mime.TypeByExtension(ext); !isGeneric(mt) {
			return mt, true
		}
	}
	return "", false
}

func isGeneric(mt string) bool {
	if mt == "" {
		return true
	}
	// mimetype may append parameters, e.g. "text/plain; charset=utf-8".
	base := strings.TrimSpace(strings.SplitN(mt, ";", 2)[0])
	return strings.EqualFold(base, OctetStream)
}
