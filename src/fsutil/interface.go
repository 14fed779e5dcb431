package fsutil

// FileStore provides an interface for file system operations
type FileStore interface {
	// ReadFile reads a file and returns its contents
	ReadFile(path string) ([]byte, error)

	// Collect expands the given paths into regular files, descending into
	// directories. Hidden files inside directories are skipped.
	Collect(paths []string) ([]File, error)
}

// File is a regular file found by Collect
type File struct {
	Path string
	Name string
	Size int64
}

// TotalSize sums the sizes of files
func TotalSize(files []File) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}
