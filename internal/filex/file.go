// Package filex holds small filesystem helpers used by the CLI.
package filex

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageSize caps a single attached image.
const MaxImageSize = 10 << 20

var ErrNotImage = errors.New("not an image")

// EnsureParentDir creates the directory that will hold file.
func EnsureParentDir(file string) error {
	dir := filepath.Dir(file)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// CheckImage makes sure path is a readable image no bigger than MaxImageSize
// and returns its absolute path.
func CheckImage(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory", abs)
	}
	if fi.Size() > MaxImageSize {
		return "", fmt.Errorf("%s is larger than %d bytes", abs, MaxImageSize)
	}
	if _, _, err := ReadImage(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// ReadImage reads an image file and sniffs its content type.
func ReadImage(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxImageSize {
		return nil, "", fmt.Errorf("%s is larger than %d bytes", path, MaxImageSize)
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, "", fmt.Errorf("%w: %s is %s", ErrNotImage, path, ct)
	}
	return data, ct, nil
}
