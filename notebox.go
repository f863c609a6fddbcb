package notebox

import (
	"log/slog"

	"github.com/aretw0/notebox/internal/platform"
	"github.com/aretw0/notebox/pkg/core"
)

// --- Types ---

// Note is a stored note with its content.
type Note = core.Note

// NoteInfo is the metadata of a stored note.
type NoteInfo = core.NoteInfo

// Service validates requests and delegates to a repository.
type Service = core.Service

// Config is the file-based deployment configuration.
type Config = platform.Config

// --- Errors ---

var (
	ErrInvalidID      = core.ErrInvalidID
	ErrInvalidContent = core.ErrInvalidContent
	ErrInvalidRoot    = core.ErrInvalidRoot
	ErrNotFound       = core.ErrNotFound
	ErrAlreadyExists  = core.ErrAlreadyExists
	ErrReadOnly       = core.ErrReadOnly
)

// --- Configuration ---

// Option defines a functional option for configuring notebox.
type Option = platform.Option

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository allows injecting a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithAdapter allows specifying the storage adapter to use by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithPolicy selects the id sanitization policy ("flat" or "nested").
func WithPolicy(policy string) Option {
	return platform.WithPolicy(policy)
}

// WithNotesDir sets the notes subdirectory of each workspace.
func WithNotesDir(dir string) Option {
	return platform.WithNotesDir(dir)
}

// WithSort selects the listing order ("modified" or "name").
func WithSort(order string) Option {
	return platform.WithSort(order)
}

// WithReadOnly rejects every mutation with ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithEventBuffer sets the size of the watch channel.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcherErrorHandler receives runtime errors of the watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New creates a note service.
func New(opts ...Option) (*core.Service, error) {
	return platform.New(opts...)
}

// Init creates the configured repository without wrapping it in a service.
func Init(opts ...Option) (core.Repository, error) {
	return platform.Init(opts...)
}

// LoadConfig reads a YAML configuration file. Empty path returns defaults.
func LoadConfig(path string) (*Config, error) {
	return platform.LoadConfig(path)
}

// FindWorkspaceRoot looks upwards for notebox.yaml or a .notebox directory.
func FindWorkspaceRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
