// Package fileid derives stable photo IDs and change fingerprints from files.
package fileid

import (
	"fmt"
	"os"
	"path/filepath"
)

// PhotoID returns the stable ID for a photo at path: its cleaned base name.
// The photo folder is flat, so the filename identifies the photo and maps
// directly back to a displayable file.
func PhotoID(path string) string {
	return filepath.Base(filepath.Clean(path))
}

// Fingerprint returns a change marker for a file: same size and modification
// time means the file is considered unchanged and is not re-embedded.
func Fingerprint(size, modTimeNS int64) string {
	return fmt.Sprintf("%d:%d", size, modTimeNS)
}

// FileFingerprint is Fingerprint over a stat result.
func FileFingerprint(info os.FileInfo) string {
	return Fingerprint(info.Size(), info.ModTime().UnixNano())
}
