// Package utils provides utility functions for filename handling and UUID generation.
//
// Functions:
//   - SanitizeFilename: Returns a safe filename for download headers.
//     Input: string (filename)
//     Output: string (sanitized filename)
//   - SignedFilename: Returns the download name of a signed document.
//     Input: string (original filename, e.g. "contract.pdf")
//     Output: string ("contract_signed.pdf")
//   - GenerateUUID: Returns a new UUID string.
//     Output: string (UUID)
//
// Used throughout the backend for safe file names and unique IDs.
package utils

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	safe := unsafeChars.ReplaceAllString(base, "_")
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}

func SignedFilename(name string) string {
	stem := SanitizeFilename(name)
	if ext := filepath.Ext(stem); strings.EqualFold(ext, ".pdf") {
		stem = strings.TrimSuffix(stem, ext)
	}
	if stem == "" {
		stem = "document"
	}
	return stem + "_signed.pdf"
}

func GenerateUUID() string {
	return uuid.New().String()
}
