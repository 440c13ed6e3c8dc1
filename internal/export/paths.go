package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanComponentPath turns an archive path into a relative output path.
// Anything up to and including a drive separator is dropped, slashes are
// normalized and leading separators trimmed.
func CleanComponentPath(path string, lowercase bool) string {
	if i := strings.IndexByte(path, ':'); i >= 0 {
		path = path[i+1:]
	}
	path = strings.ReplaceAll(path, `\`, "/")
	path = strings.TrimLeft(path, "/")
	if lowercase {
		path = strings.ToLower(path)
	}
	return filepath.FromSlash(path)
}

// CreatePath joins name onto baseDir and creates the parent directories.
// Names that resolve outside baseDir are rejected.
func CreatePath(baseDir, name string) (string, error) {
	out := filepath.Join(baseDir, name)

	rel, err := filepath.Rel(baseDir, out)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path %q escapes %s", name, baseDir)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", fmt.Errorf("creating output directory for %s: %w", out, err)
	}
	return out, nil
}
