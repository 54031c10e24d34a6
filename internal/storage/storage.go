// Package storage persists rendered export artifacts.
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// Sink stores an object under key and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
