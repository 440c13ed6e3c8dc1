// Package keys locates per-title hash lists and header keys in the assets directory.
package keys

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jchantrell/eblextract/internal/game"
)

// Assets is the root of the bundled asset tree.
type Assets struct {
	Root string
}

// NewAssets returns an asset tree rooted at root, or at ./Assets when root is empty.
func NewAssets(root string) *Assets {
	if root == "" {
		root = DefaultRoot()
	}
	return &Assets{Root: root}
}

// DefaultRoot returns the Assets directory next to the executable, falling back to the working directory.
func DefaultRoot() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join(".", "Assets")
	}
	return filepath.Join(filepath.Dir(exe), "Assets")
}

// For returns the key set for a title.
func (a *Assets) For(g game.Game, p game.Platform) (*Set, error) {
	name, err := game.KeysName(g, p)
	if err != nil {
		return nil, err
	}
	return &Set{Dir: filepath.Join(a.Root, "BinderKeys", name)}, nil
}

// Set is the key folder of one title.
type Set struct {
	Dir string
}

// HashListPath returns the name list for the archive whose header is at headerPath.
func (s *Set) HashListPath(headerPath string) string {
	return filepath.Join(s.Dir, "Hash", stem(headerPath)+".txt")
}

// KeyPath returns the PEM key for the archive whose header is at headerPath.
func (s *Set) KeyPath(headerPath string) string {
	return filepath.Join(s.Dir, "Key", stem(headerPath)+".pem")
}

// ReadKey reads the header key. A missing key is not an error; ok reports whether one was found.
func (s *Set) ReadKey(headerPath string) (key []byte, ok bool, err error) {
	path := s.KeyPath(headerPath)
	key, err = os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading header key %s: %w", path, err)
	}
	return key, true, nil
}

// OpenHashList opens the name list. A missing list is not an error; ok reports whether one was found.
func (s *Set) OpenHashList(headerPath string) (rc io.ReadCloser, ok bool, err error) {
	path := s.HashListPath(headerPath)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("opening hash list %s: %w", path, err)
	}
	return f, true, nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
