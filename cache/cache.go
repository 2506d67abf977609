package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const cacheRoot = "cache"

// GetCachePath returns the cache file path for a public post page.
func GetCachePath(postID string) string {
	hash := generateHash("post:" + postID)
	return filepath.Join(cacheRoot, "posts", fmt.Sprintf("%s_%s.html", postID, hash[:16]))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	hash := xxhash.Sum64String(s)
	return fmt.Sprintf("%016x", hash)
}

// EnsureCacheDir ensures the cache directory exists
func EnsureCacheDir() error {
	return os.MkdirAll(filepath.Join(cacheRoot, "posts"), 0755)
}

// WriteCache writes rendered HTML for a post page to its cache file.
func WriteCache(postID, html string) error {
	if err := EnsureCacheDir(); err != nil {
		return err
	}

	return os.WriteFile(GetCachePath(postID), []byte(html), 0644)
}

// ReadCache reads the cached HTML for a post page if present and fresh.
func ReadCache(postID string, maxAge time.Duration) (string, bool) {
	cachePath := GetCachePath(postID)

	info, err := os.Stat(cachePath)
	if err != nil {
		return "", false
	}

	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(cachePath)
	if err != nil {
		return "", false
	}

	return string(content), true
}

// ClearPost removes the cached page for one post. Called after the post is
// updated or deleted so stale HTML is never served.
func ClearPost(postID string) error {
	err := os.Remove(GetCachePath(postID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearAll removes every cached post page.
func ClearAll() error {
	return os.RemoveAll(filepath.Join(cacheRoot, "posts"))
}

// ClearOldCache removes cache files older than the specified duration.
func ClearOldCache(maxAge time.Duration) error {
	return filepath.Walk(cacheRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if info.IsDir() {
			return nil
		}

		if !strings.HasSuffix(path, ".html") {
			return nil
		}

		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}

		return nil
	})
}
