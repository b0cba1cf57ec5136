package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MediaPrefix is the URL prefix local image paths are served under.
const MediaPrefix = "/media/"

// LocalStore writes images to <root>/<articleNumber>/<filename>.
type LocalStore struct {
	Root string
}

func NewLocalStore(root string) *LocalStore { return &LocalStore{Root: root} }

func (s *LocalStore) Upload(_ context.Context, r io.Reader, articleNumber, filename string) (string, error) {
	if !safeSegment(articleNumber) || !safeSegment(filename) {
		return "", fmt.Errorf("invalid image location %q/%q", articleNumber, filename)
	}
	dir := filepath.Join(s.Root, articleNumber)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return MediaPrefix + articleNumber + "/" + filename, nil
}

func (s *LocalStore) List(_ context.Context, articleNumber string) ([]string, error) {
	out := []string{}
	if !safeSegment(articleNumber) {
		return out, nil
	}
	entries, err := os.ReadDir(filepath.Join(s.Root, articleNumber))
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		out = append(out, MediaPrefix+articleNumber+"/"+e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Delete accepts "/media/<article>/<file>" or a bare filename with articleNumber.
// A missing file is not an error.
func (s *LocalStore) Delete(_ context.Context, path, articleNumber string) error {
	full, err := s.resolve(path, articleNumber)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) FilePath(path string) (string, error) {
	full, err := s.resolve(path, "")
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		return "", ErrNotFound
	}
	return full, nil
}

func (s *LocalStore) resolve(path, articleNumber string) (string, error) {
	rel := strings.TrimPrefix(path, MediaPrefix)
	if rel == path && !strings.Contains(path, "/") {
		rel = articleNumber + "/" + path
	}
	parts := strings.Split(rel, "/")
	if len(parts) != 2 || !safeSegment(parts[0]) || !safeSegment(parts[1]) {
		return "", fmt.Errorf("invalid image path %q", path)
	}
	return filepath.Join(s.Root, parts[0], parts[1]), nil
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`+"\x00")
}
