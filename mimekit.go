// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package mimekit identifies the MIME type of a file, URL, or byte stream
// using the freedesktop.org shared-mime-info matching rules: filename glob
// patterns and typed, masked, offset-ranged magic byte patterns, arbitrated
// by weight and priority.
package mimekit

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"sync"

	"go.uber.org/zap"

	"github.com/go-mimekit/mimekit/internal/codec/cache"
	"github.com/go-mimekit/mimekit/internal/codec/xmldb"
	"github.com/go-mimekit/mimekit/internal/config"
	"github.com/go-mimekit/mimekit/internal/detector"
	"github.com/go-mimekit/mimekit/internal/mimetype"
	"github.com/go-mimekit/mimekit/internal/repository"
)

// Common errors (spec.md §7).
var (
	// ErrUnknownMimeType is returned by Lookup when a name/alias has no
	// record in the repository.
	ErrUnknownMimeType = errors.New("mimekit: unknown mime type")
)

// MimeType is the public view of a matched media type: its canonical name
// and the aliases it was also known by.
type MimeType struct {
	Name    string
	Aliases []string
}

func fromInternal(t *mimetype.MimeType) *MimeType {
	if t == nil {
		return nil
	}

	return &MimeType{Name: t.Name, Aliases: t.Aliases}
}

// Options configures a Detector. Mirrors blkid.ProbeOptions/ProbeOption.
type Options struct {
	Logger *zap.Logger
	Config config.Config

	// Types, when non-nil, is used as the repository's backing MimeType list
	// instead of loading the XML database or binary cache. Intended for
	// tests and embedders that already have a decoded database in memory.
	Types []*mimetype.MimeType
}

// Option configures an Options value.
type Option func(*Options)

// WithLogger sets the logger used while building and rebuilding the
// repository.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithConfig sets the resolved configuration (rebuild/save/checkMagic/
// serialization/database, spec.md §6).
func WithConfig(c config.Config) Option {
	return func(o *Options) { o.Config = c }
}

// WithTypes seeds the repository directly from an in-memory MimeType list,
// bypassing the XML database and binary cache entirely.
func WithTypes(types []*mimetype.MimeType) Option {
	return func(o *Options) { o.Types = types }
}

func applyOptions(opts ...Option) Options {
	o := Options{
		Logger: zap.NewNop(),
		Config: config.Default(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Detector identifies MIME types from filenames, files, URLs, and streams.
//
// mu guards repo/det against the rare writer (Rebuild) the same way
// internal/repository's process-wide singleton guards its shared instance:
// readers take no lock on the hot path beyond the RLock itself, and a
// rebuild swaps both fields together so no caller ever observes a repo
// paired with another repo's detector (spec.md §5 "a rebuild replaces the
// whole repository atomically").
type Detector struct {
	mu   sync.RWMutex
	repo *repository.Repository
	det  detector.Detector

	logger *zap.Logger
	cfg    config.Config
}

func (d *Detector) snapshot() (*repository.Repository, detector.Detector) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.repo, d.det
}

// New builds a Detector, loading or rebuilding the repository per opts.
//
// Resolution order for the backing MimeType list: opts.Types if set,
// otherwise the binary cache at Config.Serialization (unless Config.Rebuild
// is true or the cache is invalid), otherwise the XML database at
// Config.Database. A successful rebuild from XML is persisted back to the
// cache path when Config.Save is true.
func New(opts ...Option) (*Detector, error) {
	o := applyOptions(opts...)

	types, err := resolveTypes(o)
	if err != nil {
		return nil, err
	}

	repo := repository.Build(types, o.Logger)

	return &Detector{
		repo:   repo,
		det:    detector.NewRepositoryDetector(repo, o.Config.CheckMagic),
		logger: o.Logger,
		cfg:    o.Config,
	}, nil
}

// Default returns the process-wide Detector singleton of spec.md §5:
// initialized once from opts on the first call and shared read-only by every
// caller afterwards. Each call on the returned Detector takes its read lock
// (see Detector); the shared repository is not lock-free. Concurrent first calls
// are guarded so exactly one build runs (internal/repository.Get). Callers
// that need an independently configured or disposable repository — tests
// above all — should use New instead.
func Default(opts ...Option) (*Detector, error) {
	o := applyOptions(opts...)

	repository.SetBuilder(func() (*repository.Repository, error) {
		types, err := resolveTypes(o)
		if err != nil {
			return nil, err
		}

		return repository.Build(types, o.Logger), nil
	})

	repo, err := repository.Get()
	if err != nil {
		return nil, err
	}

	return &Detector{
		repo:   repo,
		det:    detector.NewRepositoryDetector(repo, o.Config.CheckMagic),
		logger: o.Logger,
		cfg:    o.Config,
	}, nil
}

// RebuildDefault reloads the XML database named by opts (or Config.Default's
// database path if opts doesn't set one) and atomically swaps it into the
// process-wide singleton (spec.md §5 "offered only as a whole-repository
// atomic swap"). It does not affect Detectors built by New.
func RebuildDefault(opts ...Option) error {
	o := applyOptions(opts...)

	return repository.Rebuild(func() (*repository.Repository, error) {
		types, err := loadDatabase(o.Config.Database)
		if err != nil {
			return nil, err
		}

		return repository.Build(types, o.Logger), nil
	})
}

func resolveTypes(o Options) ([]*mimetype.MimeType, error) {
	if o.Types != nil {
		return o.Types, nil
	}

	if !o.Config.Rebuild && o.Config.Serialization != "" {
		types, err := loadCache(o.Config.Serialization)
		if err == nil {
			return types, nil
		}

		o.Logger.Warn("mimekit: cache unusable, rebuilding from database", zap.Error(err))
	}

	types, err := loadDatabase(o.Config.Database)
	if err != nil {
		return nil, err
	}

	if o.Config.Save && o.Config.Serialization != "" {
		if err := saveCache(o.Config.Serialization, types); err != nil {
			o.Logger.Warn("mimekit: failed to persist cache", zap.Error(err))
		}
	}

	return types, nil
}

func loadCache(path string) ([]*mimetype.MimeType, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mimekit: opening cache %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	return cache.Decode(f)
}

func saveCache(path string, types []*mimetype.MimeType) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mimekit: creating cache %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	return cache.Encode(f, types)
}

func loadDatabase(path string) ([]*mimetype.MimeType, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mimekit: opening database %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	return xmldb.Decode(f)
}

// Rebuild reloads the XML database and atomically replaces the Detector's
// repository (spec.md §5 "a rebuild replaces the whole repository
// atomically").
func (d *Detector) Rebuild() error {
	types, err := loadDatabase(d.cfg.Database)
	if err != nil {
		return err
	}

	repo := repository.Build(types, d.logger)
	det := detector.NewRepositoryDetector(repo, d.cfg.CheckMagic)

	d.mu.Lock()
	d.repo, d.det = repo, det
	d.mu.Unlock()

	if d.cfg.Save && d.cfg.Serialization != "" {
		if err := saveCache(d.cfg.Serialization, types); err != nil {
			d.logger.Warn("mimekit: failed to persist cache after rebuild", zap.Error(err))
		}
	}

	return nil
}

// Lookup resolves a MIME type by its canonical name or any alias.
func (d *Detector) Lookup(name string) (*MimeType, error) {
	repo, _ := d.snapshot()

	t := repo.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMimeType, name)
	}

	return fromInternal(t), nil
}

// DetectFilename guesses a MIME type from a filename or path alone.
func (d *Detector) DetectFilename(name string) *MimeType {
	repo, _ := d.snapshot()

	candidates := repo.DetectByFilename(name)
	if len(candidates) == 0 {
		return nil
	}

	return fromInternal(candidates[0])
}

// DetectStream guesses a MIME type from an explicit filename (may be empty)
// plus a readable byte stream: it runs the repository's full filename+content
// resolution algorithm and returns its first candidate, or nil.
func (d *Detector) DetectStream(filename string, r detector.Reader) (*MimeType, error) {
	_, det := d.snapshot()

	t, err := det.Guess(filename, r)
	if err != nil {
		return nil, fmt.Errorf("mimekit: reading stream: %w", err)
	}

	return fromInternal(t), nil
}

// DetectBytes guesses a MIME type from an explicit filename (may be empty)
// plus an in-memory byte slice.
func (d *Detector) DetectBytes(filename string, content []byte) (*MimeType, error) {
	return d.DetectStream(filename, bytes.NewReader(content))
}

// DetectFile opens filePath and guesses its MIME type from both its
// basename and its content.
func (d *Detector) DetectFile(filePath string) (*MimeType, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("mimekit: opening %s: %w", filePath, err)
	}
	defer f.Close() //nolint:errcheck

	return d.DetectStream(path.Base(filePath), f)
}

// DetectURL guesses a MIME type from a URL's path component alone: no
// network request is made. Use DetectStream with the fetched body for
// content-aware detection.
func (d *Detector) DetectURL(rawURL string) (*MimeType, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("mimekit: parsing url %s: %w", rawURL, err)
	}

	return d.DetectFilename(path.Base(u.Path)), nil
}

// MaxTestBytes is the fewest leading bytes of content a caller must supply
// for every magic rule in the repository to be fully evaluable.
func (d *Detector) MaxTestBytes() int {
	repo, _ := d.snapshot()

	return repo.MaxTestBytes()
}

// DefaultBinary is the configured fallback MIME type for content with no
// other match (spec.md §6 "defaultBinary"); not used internally.
func (d *Detector) DefaultBinary() string {
	return d.cfg.DefaultBinary
}

// DefaultText is the configured fallback MIME type for textual content with
// no other match (spec.md §6 "defaultText"); not used internally.
func (d *Detector) DefaultText() string {
	return d.cfg.DefaultText
}
