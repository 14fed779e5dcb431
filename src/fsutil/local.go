package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// LocalFileStore implements FileStore on top of an afero filesystem
type LocalFileStore struct {
	fs afero.Fs
}

// NewLocalFileStore creates a FileStore reading the operating system's filesystem
func NewLocalFileStore() FileStore {
	return NewFileStore(afero.NewOsFs())
}

func NewFileStore(fs afero.Fs) FileStore {
	return &LocalFileStore{fs: fs}
}

func (s *LocalFileStore) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(s.fs, path)
}

func (s *LocalFileStore) Collect(paths []string) ([]File, error) {
	seen := make(map[string]bool)
	var files []File

	add := func(path string, info os.FileInfo) {
		if seen[path] {
			return
		}
		seen[path] = true
		files = append(files, File{Path: path, Name: info.Name(), Size: info.Size()})
	}

	for _, root := range paths {
		info, err := s.fs.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root, info)
			continue
		}

		var found []File
		err = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			hidden := path != root && strings.HasPrefix(info.Name(), ".")
			if info.IsDir() {
				if hidden {
					return filepath.SkipDir
				}
				return nil
			}
			if hidden || !info.Mode().IsRegular() {
				return nil
			}
			found = append(found, File{Path: path, Name: info.Name(), Size: info.Size()})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}

		sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
		for _, f := range found {
			if !seen[f.Path] {
				seen[f.Path] = true
				files = append(files, f)
			}
		}
	}

	return files, nil
}
