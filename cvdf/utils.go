package cvdf

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConvertToAbsolute returns an absolute version of path, interpreting relative
// paths as relative to baseDir.  Paths with a URL scheme are returned unchanged.
func ConvertToAbsolute(path, baseDir string) (string, error) {
	if path == "" || filepath.IsAbs(path) || HasScheme(path) {
		return path, nil
	}
	abs, err := filepath.Abs(filepath.Join(baseDir, path))
	if err != nil {
		return "", fmt.Errorf("unable to make %q absolute: %v", path, err)
	}
	return abs, nil
}

// HasScheme returns true if the path looks like a URL, e.g., "gs://bucket/x.pq".
func HasScheme(path string) bool {
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == ':':
			return i > 1 && len(path) > i+2 && path[i+1] == '/' && path[i+2] == '/'
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '+', c == '-', c == '.':
		default:
			return false
		}
	}
	return false
}

// FileExists returns true if path names an existing file or directory.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
