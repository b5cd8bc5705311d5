package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
)

var errNotInLibrary = errors.New("file is not in the space")

// library keeps the uploaded files of each space so a removal can re-ingest
// the files that remain.
type library struct {
	root string
}

func (l library) dir(space string) string {
	return filepath.Join(l.root, "s_"+url.PathEscape(space))
}

// add copies src into the space and returns the stored path. A file with the
// same name is replaced.
func (l library) add(space, src string) (string, error) {
	dir := l.dir(space)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := filepath.Join(dir, filepath.Base(src))
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("copying %s: %w", src, err)
	}
	return dst, out.Close()
}

// files returns the stored paths of the space, sorted by name.
func (l library) files(space string) ([]string, error) {
	entries, err := os.ReadDir(l.dir(space))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, filepath.Join(l.dir(space), e.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// remove deletes name from the space and returns its former path.
func (l library) remove(space, name string) (string, error) {
	path := filepath.Join(l.dir(space), filepath.Base(name))
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", errNotInLibrary, name)
		}
		return "", err
	}
	return path, nil
}

func (l library) clear(space string) error {
	return os.RemoveAll(l.dir(space))
}
