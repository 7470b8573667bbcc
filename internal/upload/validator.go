// Package upload enforces constraints on uploaded diagram files.
//
// The validator runs BEFORE the expensive AI call — rejecting a 50MB .exe
// here costs microseconds; discovering the problem after a Gemini round
// trip costs seconds and money. It's a pure predicate: no side effects,
// no retries, errors surfaced verbatim to the caller.
//
// One format family per deployment: a server is configured to accept
// either PDF diagrams or image diagrams, never both. The family also
// fixes the size ceiling (documents are allowed to be larger than images).
package upload

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sakif/opm-codegen/internal/apperror"
)

// Size ceilings per format family.
const (
	MaxPDFBytes   = 10 * 1024 * 1024 // 10 MB
	MaxImageBytes = 5 * 1024 * 1024  // 5 MB
)

// Validator checks uploaded files against an extension allow-list and a
// size ceiling. Construct one at startup and share it — it's immutable.
type Validator struct {
	allowed  map[string]string // extension (with dot, lowercase) → MIME type
	maxBytes int64
}

// NewPDFValidator accepts only .pdf uploads, up to 10MB.
func NewPDFValidator() *Validator {
	return &Validator{
		allowed:  map[string]string{".pdf": "application/pdf"},
		maxBytes: MaxPDFBytes,
	}
}

// NewImageValidator accepts .jpg/.jpeg/.png uploads, up to 5MB.
func NewImageValidator() *Validator {
	return &Validator{
		allowed: map[string]string{
			".jpg":  "image/jpeg",
			".jpeg": "image/jpeg",
			".png":  "image/png",
		},
		maxBytes: MaxImageBytes,
	}
}

// ForFamily returns the validator for a configured format family
// ("pdf" or "image"). Unknown families are an error — a typo in config
// should fail loudly at startup, not silently accept everything.
func ForFamily(family string) (*Validator, error) {
	switch strings.ToLower(strings.TrimSpace(family)) {
	case "", "pdf":
		return NewPDFValidator(), nil
	case "image":
		return NewImageValidator(), nil
	default:
		return nil, fmt.Errorf("upload: unknown format family %q (want \"pdf\" or \"image\")", family)
	}
}

// Validate checks the filename's extension and the file size.
//
// The extension check is case-insensitive ("DIAGRAM.PDF" is fine) and runs
// first: a disallowed extension is rejected regardless of size, and an
// oversized file is rejected even with an allowed extension.
func (v *Validator) Validate(filename string, sizeBytes int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := v.allowed[ext]; !ok {
		return apperror.ValidationFailed("file",
			fmt.Sprintf("invalid file format %q, allowed: %s", ext, v.allowedList()))
	}

	if sizeBytes > v.maxBytes {
		return apperror.ValidationFailed("file",
			fmt.Sprintf("file exceeds %dMB limit (got %.2fMB)",
				v.maxBytes/(1024*1024), float64(sizeBytes)/1024/1024))
	}

	return nil
}

// MIMEType returns the media type for an (already validated) filename.
// The AI call tags the diagram bytes with this type.
func (v *Validator) MIMEType(filename string) string {
	return v.allowed[strings.ToLower(filepath.Ext(filename))]
}

// MaxBytes returns the configured size ceiling. The HTTP layer uses it to
// cap multipart memory and reject oversized bodies early.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

func (v *Validator) allowedList() string {
	exts := make([]string, 0, len(v.allowed))
	for ext := range v.allowed {
		exts = append(exts, ext)
	}
	// Map iteration order is random; sort for stable error messages.
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
