// Package source reads Org files from a filesystem and turns them into
// calendar events.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"orgcal/internal/fullcalendar"
	appLog "orgcal/internal/log"
	"orgcal/internal/metric"
	"orgcal/internal/model"
	"orgcal/internal/org"
)

var (
	ErrNotFound     = errors.New("source not found")
	ErrNotReadable  = errors.New("source not readable")
	ErrNotParseable = errors.New("source not parseable")
)

// Error ties a failure to the path that caused it.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

func wrap(path string, kind, cause error) error {
	return &Error{Path: path, Err: fmt.Errorf("%w: %w", kind, cause)}
}

// Kind returns a short label for the failure kind of err, for logs and
// metrics.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotReadable):
		return "not_readable"
	case errors.Is(err, ErrNotParseable):
		return "not_parseable"
	default:
		return "other"
	}
}

// Document is one parsed Org file.
type Document struct {
	// Path is the file path as given, stamped on every event.
	Path string
	// Label is the file name without extension.
	Label string
	Org   *org.Document
}

// Loader reads Org documents from a billy filesystem.
type Loader struct {
	fs        billy.Filesystem
	host      bool
	keepGoing bool
	parseOpts []org.Option
}

type Option func(*Loader)

// WithKeepGoing makes LoadAll log and skip failed documents instead of
// aborting the batch.
func WithKeepGoing(keepGoing bool) Option {
	return func(l *Loader) { l.keepGoing = keepGoing }
}

// WithParseOptions passes options through to org.Parse.
func WithParseOptions(opts ...org.Option) Option {
	return func(l *Loader) { l.parseOpts = append(l.parseOpts, opts...) }
}

// NewLoader creates a Loader over fsys. A nil fsys means the host
// filesystem, with paths resolved against the working directory.
func NewLoader(fsys billy.Filesystem, opts ...Option) *Loader {
	host := fsys == nil
	if host {
		fsys = osfs.New("")
	}
	l := &Loader{fs: fsys, host: host}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads and parses a single Org file.
func (l *Loader) LoadFile(path string) (Document, error) {
	data, err := util.ReadFile(l.fs, l.resolve(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, wrap(path, ErrNotFound, err)
		}
		return Document{}, wrap(path, ErrNotReadable, err)
	}
	doc, err := org.Parse(string(data), l.parseOpts...)
	if err != nil {
		return Document{}, wrap(path, ErrNotParseable, err)
	}
	metric.DocumentsLoaded.Inc()
	appLog.Debug("org document loaded", "path", path, "bytes", len(data), "headlines", len(doc.Headlines))
	return Document{Path: path, Label: label(path), Org: doc}, nil
}

// LoadDir loads every *.org file directly inside dir, in name order.
// Subdirectories are not visited.
func (l *Loader) LoadDir(dir string) ([]Document, error) {
	matches, err := l.listDir(dir)
	if err != nil {
		return nil, err
	}
	return l.loadFiles(matches)
}

// LoadAll loads each path, treating directories as LoadDir would.
func (l *Loader) LoadAll(paths []string) ([]Document, error) {
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := l.fs.Stat(l.resolve(p))
		if err != nil {
			kind := ErrNotReadable
			if errors.Is(err, fs.ErrNotExist) {
				kind = ErrNotFound
			}
			if err := l.fail(wrap(p, kind, err)); err != nil {
				return nil, err
			}
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := l.listDir(p)
		if err != nil {
			if err := l.fail(err); err != nil {
				return nil, err
			}
			continue
		}
		files = append(files, matches...)
	}
	return l.loadFiles(files)
}

func (l *Loader) listDir(dir string) ([]string, error) {
	info, err := l.fs.Stat(l.resolve(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wrap(dir, ErrNotFound, err)
		}
		return nil, wrap(dir, ErrNotReadable, err)
	}
	if !info.IsDir() {
		return nil, wrap(dir, ErrNotReadable, errors.New("not a directory"))
	}
	matches, err := util.Glob(l.fs, filepath.Join(l.resolve(dir), "*.org"))
	if err != nil {
		return nil, wrap(dir, ErrNotReadable, err)
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if fi, err := l.fs.Stat(m); err == nil && !fi.IsDir() {
			files = append(files, filepath.Join(dir, filepath.Base(m)))
		}
	}
	slices.Sort(files)
	return files, nil
}

func (l *Loader) loadFiles(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		doc, err := l.LoadFile(p)
		if err != nil {
			if err := l.fail(err); err != nil {
				return nil, err
			}
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// fail records err and returns it unless the loader keeps going.
func (l *Loader) fail(err error) error {
	metric.DocumentsFailed.WithLabelValues(Kind(err)).Inc()
	if !l.keepGoing {
		return err
	}
	appLog.Error("skipping org source", err, "kind", Kind(err))
	return nil
}

// resolve turns host paths that climb above the working directory into
// absolute ones; the host filesystem is rooted at the working directory.
func (l *Loader) resolve(path string) string {
	if !l.host || filepath.IsAbs(path) {
		return path
	}
	clean := filepath.Clean(path)
	if clean != ".." && !strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return path
	}
	if abs, err := filepath.Abs(clean); err == nil {
		return abs
	}
	return path
}

func label(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Events converts docs in order, stamping each event with its document's
// path.
func Events(docs []Document, mode fullcalendar.Mode, opts fullcalendar.Options) []model.Event {
	events := make([]model.Event, 0)
	for _, d := range docs {
		o := opts
		o.FilePath = d.Path
		events = append(events, fullcalendar.Events(d.Org, mode, o)...)
	}
	metric.EventsEmitted.WithLabelValues(string(mode)).Add(float64(len(events)))
	return events
}
