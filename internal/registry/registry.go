// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/singleflight"

	"github.com/mcvm-launcher/mcvm-sub002/pkg/eval"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/pkgreq"
	"github.com/mcvm-launcher/mcvm-sub002/pkg/repo"
)

const (
	// ScriptExt is the file extension of script packages in a directory.
	ScriptExt = ".pkg.txt"
	// DeclarativeExt is the file extension of declarative packages in a
	// directory.
	DeclarativeExt = ".json"
	// IndexFileName is the repository index looked up when AddRepository is
	// given a directory.
	IndexFileName = "index.json"
)

const (
	// SourceInline is a package registered with AddInline.
	SourceInline Source = iota
	// SourceDirectory is a package file in a package directory.
	SourceDirectory
	// SourceRepository is a package listed in a repository index.
	SourceRepository
)

var (
	// ErrMaliciousPackage is returned for index entries flagged malicious.
	ErrMaliciousPackage = errors.New("package is flagged malicious")
	// ErrRemoteUnsupported is returned for remote packages when no Fetcher
	// is configured.
	ErrRemoteUnsupported = errors.New("remote packages need a fetcher")
)

type (
	// Source is where a package was found.
	Source int

	// Fetcher downloads remote package text.
	Fetcher interface {
		Fetch(ctx context.Context, url string) ([]byte, error)
	}

	// Location describes where a package's text lives.
	Location struct {
		ID          pkgreq.ID
		Source      Source
		ContentType eval.ContentType
		// Path is the local file, empty for inline and remote packages.
		Path string
		// URL is set for remote repository packages.
		URL string
		// Repository is the index file a repository package came from.
		Repository string
		// Flags are the advisory flags of a repository package.
		Flags []repo.Flag
	}

	// Option configures a Registry.
	Option func(*Registry)

	// Registry finds, loads and caches packages. It implements
	// resolve.PackageEvaluator and resolve.Advisor and is safe for
	// concurrent use once sources are registered.
	Registry struct {
		logger  *log.Logger
		fetcher Fetcher

		mu     sync.RWMutex
		inline map[pkgreq.ID]inlinePackage
		dirs   []string
		repos  []repository

		loadGroup singleflight.Group
		loadedMu  sync.Mutex
		loaded    map[pkgreq.ID]*eval.Package
	}

	inlinePackage struct {
		contentType eval.ContentType
		data        []byte
	}

	repository struct {
		path  string
		index *repo.Index
	}
)

// String returns a short name for the source.
func (s Source) String() string {
	switch s {
	case SourceInline:
		return "inline"
	case SourceDirectory:
		return "directory"
	case SourceRepository:
		return "repository"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// WithLogger sets the logger used for lookup tracing.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithFetcher enables remote repository packages.
func WithFetcher(f Fetcher) Option {
	return func(r *Registry) { r.fetcher = f }
}

// WithDirectory adds a package directory.
func WithDirectory(dir string) Option {
	return func(r *Registry) { r.dirs = append(r.dirs, dir) }
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger: log.New(io.Discard),
		inline: make(map[pkgreq.ID]inlinePackage),
		loaded: make(map[pkgreq.ID]*eval.Package),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddInline registers package text under id. Inline packages take
// precedence over every other source.
func (r *Registry) AddInline(id pkgreq.ID, ct eval.ContentType, data []byte) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if _, err := eval.ParseContentType(string(ct)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inline[id] = inlinePackage{contentType: ct, data: slices.Clone(data)}
	r.forget(id)
	return nil
}

// AddDirectory adds a package directory after the existing ones.
func (r *Registry) AddDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("package directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("package directory %s: not a directory", dir)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs = append(r.dirs, dir)
	return nil
}

// AddRepository reads a repository index from path, or from the
// IndexFileName inside path when it is a directory.
func (r *Registry) AddRepository(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, IndexFileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading repository index: %w", err)
	}
	idx, err := repo.Parse(data)
	if err != nil {
		return fmt.Errorf("repository %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.repos = append(r.repos, repository{path: path, index: idx})
	r.logger.Debug("added repository", "path", path, "name", idx.Metadata.Name, "packages", len(idx.Packages))
	return nil
}

// IDs returns every package id the inline packages and repositories know
// about, sorted. Directory contents are not listed.
func (r *Registry) IDs() []pkgreq.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[pkgreq.ID]struct{})
	for id := range r.inline {
		seen[id] = struct{}{}
	}
	for _, rp := range r.repos {
		for id := range rp.index.Packages {
			seen[id] = struct{}{}
		}
	}
	ids := maps.Keys(seen)
	slices.Sort(ids)
	return ids
}

// forget drops a cached package. Callers hold r.mu.
func (r *Registry) forget(id pkgreq.ID) {
	r.loadedMu.Lock()
	delete(r.loaded, id)
	r.loadedMu.Unlock()
}
