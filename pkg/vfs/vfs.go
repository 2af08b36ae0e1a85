// Package vfs provides read-only access to an extracted ROSE data tree.
//
// ROSE data files reference each other with Windows separators and
// inconsistent case ("3Ddata\\Maps\\Junon\\JDT01\\32_32.HIM"), so lookups
// go through a case-insensitive index built when the tree is opened.
package vfs

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Faultbox/roseimport/pkg/encoding"
)

// Source is an indexed file tree.
type Source struct {
	fsys  fs.FS
	files map[string]*Entry
}

// Entry describes one file in the tree.
type Entry struct {
	Name string // normalized lookup key
	Path string // real path inside the tree
	Size int64
}

// Open indexes the directory at root.
func Open(root string) (*Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening data root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening data root: %s is not a directory", root)
	}
	return OpenFS(os.DirFS(root))
}

// OpenFS indexes an arbitrary file system.
func OpenFS(fsys fs.FS) (*Source, error) {
	src := &Source{
		fsys:  fsys,
		files: make(map[string]*Entry),
	}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entry := &Entry{
			Name: encoding.NormalizePath(p),
			Path: p,
			Size: info.Size(),
		}
		src.files[entry.Name] = entry
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexing data tree: %w", err)
	}

	return src, nil
}

// Close releases the index.
func (s *Source) Close() error {
	s.files = nil
	return nil
}

// Len returns the number of indexed files.
func (s *Source) Len() int {
	return len(s.files)
}

// List returns all normalized file paths, sorted.
func (s *Source) List() []string {
	result := make([]string, 0, len(s.files))
	for name := range s.files {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Glob returns the sorted normalized paths matching pattern. The pattern
// uses path.Match syntax and is matched case-insensitively.
func (s *Source) Glob(pattern string) ([]string, error) {
	pattern = encoding.NormalizePath(pattern)
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	var result []string
	for name := range s.files {
		if ok, _ := path.Match(pattern, name); ok {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result, nil
}

// CountByExt returns how many files carry each extension (upper case,
// without the dot).
func (s *Source) CountByExt() map[string]int {
	counts := make(map[string]int)
	for name := range s.files {
		ext := strings.TrimPrefix(path.Ext(name), ".")
		counts[ext]++
	}
	return counts
}

// Contains reports whether a file exists.
func (s *Source) Contains(name string) bool {
	_, ok := s.files[encoding.NormalizePath(name)]
	return ok
}

// Stat returns the entry for a file.
func (s *Source) Stat(name string) (*Entry, error) {
	entry, ok := s.files[encoding.NormalizePath(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, name)
	}
	return entry, nil
}

// Read returns the whole contents of a file.
func (s *Source) Read(name string) ([]byte, error) {
	entry, err := s.Stat(name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, entry.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}
