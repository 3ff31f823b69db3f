package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
)

// directorySource serves artifacts from a directory on the local filesystem.
type directorySource struct {
	root string
}

// NewDirectory returns a Source rooted at dir. The directory does not have to
// exist yet; missing files are reported per request.
func NewDirectory(dir string) Source {
	return &directorySource{root: filepath.Clean(dir)}
}

// Root returns the directory backing s, or "" if s is not directory backed.
func Root(s Source) string {
	if d, ok := s.(*directorySource); ok {
		return d.root
	}
	return ""
}

func (d *directorySource) Get(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	// Cleaning a rooted path keeps the result inside d.root.
	clean := path.Clean("/" + key)
	if clean == "/" {
		return nil, ObjectInfo{}, fmt.Errorf("%w: invalid key %q", ErrObjectNotFound, key)
	}

	full := filepath.Join(d.root, filepath.FromSlash(clean))

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, ObjectInfo{}, fmt.Errorf("open %s: %w", key, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s is a directory", ErrObjectNotFound, key)
	}

	return f, ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ContentType:  mime.TypeByExtension(filepath.Ext(full)),
		LastModified: st.ModTime(),
	}, nil
}
