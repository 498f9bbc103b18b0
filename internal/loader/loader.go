// Package loader enumerates supported image files in the photo folder.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoImages is returned by List when the folder contains no supported images.
// Callers report it to the user ("no images found") without aborting.
var ErrNoImages = errors.New("no images found")

// SupportedExtensions are the image extensions the loader accepts, compared
// case-insensitively.
var SupportedExtensions = []string{".png", ".jpg", ".jpeg"}

// List returns the absolute paths of supported image files directly in dir
// (non-recursive), lexically sorted, plus the paths of entries that were
// skipped because they could not be read. Subdirectories are ignored.
// Returns ErrNoImages when no supported image is found.
func List(dir string) (paths []string, skipped []string, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("absolute path: %w", err)
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, nil, fmt.Errorf("read photo folder: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(absDir, entry.Name())
		if !Supported(entry.Name()) {
			continue
		}
		info, statErr := entry.Info()
		if statErr != nil || !info.Mode().IsRegular() {
			skipped = append(skipped, path)
			continue
		}
		if !readable(path) {
			skipped = append(skipped, path)
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, skipped, ErrNoImages
	}
	return paths, skipped, nil
}

// Supported reports whether the filename has a supported image extension
// (case-insensitive).
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
