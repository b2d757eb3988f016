// Package downloader fetches remote model artifacts into a local
// directory.
//
// Downloads are written to a uniquely named temp file first and renamed
// into place on success, so a crashed download never leaves a partial
// artifact at the final path. There is no cross-process locking: two
// processes racing to populate the same directory may both download.
package downloader

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Fetch downloads rawURL into destDir and returns the local file path.
//
// The file keeps the base name of the URL path. destDir is created if it
// does not exist. The call blocks until the download completes.
func Fetch(rawURL, destDir string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	fileName := path.Base(parsed.Path)
	if fileName == "" || fileName == "/" || fileName == "." {
		return "", fmt.Errorf("cannot derive file name from url %q", rawURL)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	destPath := filepath.Join(destDir, fileName)
	tmpPath := destPath + ".partial-" + uuid.NewString()

	logrus.WithFields(logrus.Fields{
		"url":  rawURL,
		"dest": destPath,
	}).Info("downloading model artifact")

	if err := download(rawURL, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}
	return destPath, nil
}

func download(rawURL, tmpPath string) error {
	resp, err := http.Get(rawURL) //nolint:gosec // G107: URL comes from the pretrained registry
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	//nolint:gosec // G304: tmpPath is derived from the cache layout
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return fmt.Errorf("download of %s interrupted: %w", rawURL, err)
	}
	return out.Close()
}
