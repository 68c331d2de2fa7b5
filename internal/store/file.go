package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	fileExt      = ".layout"
	headerName   = "# name: "
	headerVersion = "# version: "
)

// FileStore keeps one <id>.layout file per layout. Name and version live in
// comment lines at the top of the file, which the layout parser skips, so the
// files stay loadable by any layout reader.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create layout dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid layout id %q", id)
	}
	return filepath.Join(s.dir, id+fileExt), nil
}

func (s *FileStore) Get(_ context.Context, id string) (*Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id, true)
}

func (s *FileStore) read(id string, withBody bool) (*Layout, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read layout: %w", err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat layout: %w", err)
	}

	l := &Layout{ID: id, UpdatedAt: info.ModTime().UTC()}
	body := string(data)
	for {
		line, rest, _ := strings.Cut(body, "\n")
		switch {
		case strings.HasPrefix(line, headerName):
			l.Name = strings.TrimPrefix(line, headerName)
		case strings.HasPrefix(line, headerVersion):
			l.Version, _ = strconv.Atoi(strings.TrimPrefix(line, headerVersion))
		default:
			if withBody {
				l.Body = body
			}
			return l, nil
		}
		body = rest
	}
}

func (s *FileStore) Put(_ context.Context, l *Layout) (*Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(l.ID, false)
	switch {
	case errors.Is(err, ErrNotFound):
		if l.Version != 0 {
			return nil, ErrConflict
		}
	case err != nil:
		return nil, err
	case current.Version != l.Version:
		return nil, ErrConflict
	}

	p, err := s.path(l.ID)
	if err != nil {
		return nil, err
	}
	next := *l
	next.Version = l.Version + 1

	tmp, err := os.CreateTemp(s.dir, "."+l.ID+"-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	w := bufio.NewWriter(tmp)
	fmt.Fprintf(w, "%s%s\n%s%d\n", headerName, flattenName(next.Name), headerVersion, next.Version)
	w.WriteString(next.Body)
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write layout: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close layout: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("replace layout: %w", err)
	}

	if info, err := os.Stat(p); err == nil {
		next.UpdatedAt = info.ModTime().UTC()
	}
	return &next, nil
}

func (s *FileStore) List(_ context.Context) ([]Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	layouts := make([]Layout, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		l, err := s.read(strings.TrimSuffix(name, fileExt), false)
		if err != nil {
			slog.Warn("skip unreadable layout", "file", name, "error", err)
			continue
		}
		layouts = append(layouts, *l)
	}
	sort.SliceStable(layouts, func(i, j int) bool {
		return layouts[i].UpdatedAt.After(layouts[j].UpdatedAt)
	})
	return layouts, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete layout: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func flattenName(name string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(name)
}
