package platform

import (
	"log/slog"

	"github.com/aretw0/notebox/pkg/core"
)

// options holds the internal configuration for the note service.
type options struct {
	repository   core.Repository
	logger       *slog.Logger
	adapter      string
	policy       string
	notesDir     string
	sort         string
	readOnly     bool
	eventBuffer  int
	errorHandler func(error)
}

// Option defines a functional option for configuring notebox.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter: "fs",
	}
}

// WithLogger sets the logger for the service and repository.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository allows injecting a custom storage adapter (e.g. a mock).
// If provided, the filesystem adapter and its options are skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithAdapter selects the storage adapter by name. Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithPolicy selects the id sanitization policy: "flat" (default) or "nested".
func WithPolicy(policy string) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithNotesDir sets the notes subdirectory of each workspace.
// For the nested policy it is also the required id prefix (default "notes").
func WithNotesDir(dir string) Option {
	return func(o *options) {
		o.notesDir = dir
	}
}

// WithSort selects the listing order: "modified" or "name".
// Empty keeps the policy default.
func WithSort(order string) Option {
	return func(o *options) {
		o.sort = order
	}
}

// WithReadOnly enables read-only mode.
// Save and Delete return ErrReadOnly and missing directories are never created.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithEventBuffer sets the watch channel size. Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithWatcherErrorHandler registers a callback for errors raised inside the
// watch loop (e.g. permission denied on a new directory), which are otherwise
// only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}
