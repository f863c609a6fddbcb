package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/notebox/pkg/core"
)

// SortOrder selects how List orders its results.
type SortOrder string

const (
	// SortModified orders by modification time, newest first.
	SortModified SortOrder = "modified"
	// SortName orders by path, ascending.
	SortName SortOrder = "name"
)

// ParseSortOrder validates a sort order name. Empty selects the policy default.
func ParseSortOrder(name string) (SortOrder, error) {
	switch SortOrder(name) {
	case "", SortModified, SortName:
		return SortOrder(name), nil
	default:
		return "", fmt.Errorf("unknown sort order: %s", name)
	}
}

// Repository implements core.Repository on the local filesystem.
// It holds no per-workspace state: every call re-reads the filesystem.
type Repository struct {
	config   Config
	resolver Resolver

	mu             sync.RWMutex
	activeWatchers int
	lastWatchStart *time.Time
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Resolver     Resolver     // defaults to a FlatResolver on the root itself
	Sort         SortOrder    // empty: modified for flat, name for nested
	ReadOnly     bool         // Save and Delete return core.ErrReadOnly
	Logger       *slog.Logger // nil discards
	ErrorHandler func(error)  // receives watcher runtime errors
	EventBuffer  int          // watch channel size, zero means 100
	FileMode     os.FileMode  // zero means 0644
	DirMode      os.FileMode  // zero means 0755
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.Resolver == nil {
		config.Resolver = &FlatResolver{}
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Sort == "" {
		config.Sort = SortModified
		if config.Resolver.Recursive() {
			config.Sort = SortName
		}
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 100
	}
	if config.FileMode == 0 {
		config.FileMode = 0644
	}
	if config.DirMode == 0 {
		config.DirMode = 0755
	}
	return &Repository{
		config:   config,
		resolver: config.Resolver,
	}
}

// Resolver returns the sanitization policy in use.
func (r *Repository) Resolver() Resolver {
	return r.resolver
}

// List scans the notes directory of root.
//
// Strategy:
//  1. Create the notes directory if missing (read-only: report empty).
//  2. Walk it, descending only when the policy allows nesting.
//  3. Keep regular .md files that the resolver could address.
//  4. Sort deterministically.
func (r *Repository) List(ctx context.Context, root string) ([]core.NoteInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notesDir, err := r.resolver.NotesDir(root)
	if err != nil {
		return nil, err
	}

	notes := []core.NoteInfo{}

	if r.config.ReadOnly {
		if _, err := os.Stat(notesDir); errors.Is(err, os.ErrNotExist) {
			return notes, nil
		}
	} else if err := os.MkdirAll(notesDir, r.config.DirMode); err != nil {
		return nil, fmt.Errorf("failed to create notes directory: %w", err)
	}

	pattern := "*" + NoteExt
	if r.resolver.Recursive() {
		pattern = "**/*" + NoteExt
	}

	err = filepath.WalkDir(notesDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == notesDir {
			return nil
		}
		if d.IsDir() {
			if !r.resolver.Recursive() || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(notesDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if ok, _ := doublestar.Match(pattern, rel); !ok {
			return nil
		}

		loc, ok := r.resolver.Locate(root, rel)
		if !ok {
			r.config.Logger.Debug("skipping unaddressable file", "path", rel)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil // Removed while walking
			}
			return err
		}

		notes = append(notes, toInfo(loc, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	sortNotes(notes, r.config.Sort)
	return notes, nil
}

func sortNotes(notes []core.NoteInfo, order SortOrder) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if order == SortModified && !a.ModifiedAt.Equal(b.ModifiedAt) {
			return a.ModifiedAt.After(b.ModifiedAt)
		}
		if order == SortModified && a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Path < b.Path
	})
}

// Get retrieves a note and its content.
// Unresolvable ids, missing files and non-regular files report core.ErrNotFound.
func (r *Repository) Get(ctx context.Context, root, id string) (core.Note, error) {
	if err := ctx.Err(); err != nil {
		return core.Note{}, err
	}

	loc, err := r.resolver.Resolve(root, id)
	if err != nil {
		if errors.Is(err, core.ErrInvalidRoot) {
			return core.Note{}, err
		}
		return core.Note{}, fmt.Errorf("%w: %w", core.ErrNotFound, err)
	}

	// Lstat so symlinks count as non-regular, as in List and Delete.
	info, err := os.Lstat(loc.Abs)
	if err != nil {
		if isMissing(err) {
			return core.Note{}, fmt.Errorf("%w: %s", core.ErrNotFound, loc.ID)
		}
		return core.Note{}, fmt.Errorf("failed to stat note %s: %w", loc.ID, err)
	}
	if !info.Mode().IsRegular() {
		return core.Note{}, fmt.Errorf("%w: %s is not a regular file", core.ErrNotFound, loc.ID)
	}

	f, err := os.Open(loc.Abs)
	if err != nil {
		if isMissing(err) {
			return core.Note{}, fmt.Errorf("%w: %s", core.ErrNotFound, loc.ID)
		}
		return core.Note{}, fmt.Errorf("failed to open note %s: %w", loc.ID, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to read note %s: %w", loc.ID, err)
	}

	content := string(data)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "\uFFFD")
	}

	return core.Note{NoteInfo: toInfo(loc, info), Content: content}, nil
}

// Save replaces the content of a note atomically.
//
// Workflow:
//  1. Reject read-only mode, invalid ids and non UTF-8 content (no I/O yet).
//  2. Create parent directories.
//  3. Write a temp file next to the target and rename it over the target.
//  4. Stat the result for fresh metadata.
func (r *Repository) Save(ctx context.Context, root, id, content string) (core.NoteInfo, error) {
	if r.config.ReadOnly {
		return core.NoteInfo{}, core.ErrReadOnly
	}

	loc, err := r.resolver.Resolve(root, id)
	if err != nil {
		return core.NoteInfo{}, err
	}
	if !utf8.ValidString(content) {
		return core.NoteInfo{}, fmt.Errorf("%w: content is not valid UTF-8", core.ErrInvalidContent)
	}
	if err := ctx.Err(); err != nil {
		return core.NoteInfo{}, err
	}

	if err := os.MkdirAll(filepath.Dir(loc.Abs), r.config.DirMode); err != nil {
		return core.NoteInfo{}, fmt.Errorf("failed to create directories: %w", err)
	}

	if err := writeFileAtomic(loc.Abs, []byte(content), r.config.FileMode); err != nil {
		return core.NoteInfo{}, fmt.Errorf("failed to write note %s: %w", loc.ID, err)
	}

	info, err := os.Stat(loc.Abs)
	if err != nil {
		return core.NoteInfo{}, fmt.Errorf("failed to stat note %s: %w", loc.ID, err)
	}

	r.config.Logger.Debug("note written", "id", loc.ID, "path", loc.Path, "size", info.Size())
	return toInfo(loc, info), nil
}

// Delete removes a note. Invalid ids and missing files report false without error.
func (r *Repository) Delete(ctx context.Context, root, id string) (bool, error) {
	if r.config.ReadOnly {
		return false, core.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	loc, err := r.resolver.Resolve(root, id)
	if err != nil {
		if errors.Is(err, core.ErrInvalidRoot) {
			return false, err
		}
		r.config.Logger.Debug("nothing to delete", "id", id, "reason", err)
		return false, nil
	}

	info, err := os.Lstat(loc.Abs)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat note %s: %w", loc.ID, err)
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	if err := os.Remove(loc.Abs); err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to remove note %s: %w", loc.ID, err)
	}
	return true, nil
}

func toInfo(loc Location, info os.FileInfo) core.NoteInfo {
	return core.NoteInfo{
		ID:         loc.ID,
		Path:       loc.Path,
		Name:       loc.Name,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
}

// isMissing reports "does not exist", including a path component that is a file.
func isMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

var _ core.Repository = (*Repository)(nil)
var _ core.Watchable = (*Repository)(nil)
