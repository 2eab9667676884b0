package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// Scanner walks a source tree and parses every Java file.
type Scanner struct {
	fs        afs.Service
	extension string
	skipDirs  map[string]bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithFileSystem sets the file system the tree is read from.
func WithFileSystem(fs afs.Service) Option {
	return func(s *Scanner) {
		s.fs = fs
	}
}

// WithSkipDirs excludes directories by name, e.g. "build" or "target".
func WithSkipDirs(names ...string) Option {
	return func(s *Scanner) {
		for _, name := range names {
			s.skipDirs[name] = true
		}
	}
}

// NewScanner creates a scanner over the local file system by default.
func NewScanner(opts ...Option) *Scanner {
	ret := &Scanner{fs: afs.New(), extension: ".java", skipDirs: map[string]bool{}}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Scan parses every Java source under baseURL; unit paths are relative to baseURL and sorted.
func (s *Scanner) Scan(ctx context.Context, baseURL string) ([]*Unit, error) {
	var files []string
	var visitor storage.OnVisit = func(ctx context.Context, walkURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return !s.skipDirs[info.Name()], nil
		}
		if strings.HasSuffix(info.Name(), s.extension) {
			files = append(files, path.Join(parent, info.Name()))
		}
		return true, nil
	}
	if err := s.fs.Walk(ctx, baseURL, visitor); err != nil {
		return nil, fmt.Errorf("failed to walk %v: %w", baseURL, err)
	}
	sort.Strings(files)
	ret := make([]*Unit, 0, len(files))
	for _, file := range files {
		URL := url.Join(baseURL, file)
		code, err := s.fs.DownloadWithURL(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to read %v: %w", URL, err)
		}
		unit, err := Parse(ctx, file, code)
		if err != nil {
			return nil, err
		}
		ret = append(ret, unit)
	}
	return ret, nil
}
