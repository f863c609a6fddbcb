package core

import "context"

// Repository defines the contract for storing and retrieving notes.
// The workspace root is passed to every call; implementations keep no
// per-root state, so one repository can serve many workspaces.
type Repository interface {
	// List returns the metadata of every note under root.
	// A missing notes directory is created and yields an empty list.
	List(ctx context.Context, root string) ([]NoteInfo, error)

	// Get retrieves a note with its content.
	// Missing notes and unresolvable ids report ErrNotFound.
	Get(ctx context.Context, root, id string) (Note, error)

	// Save replaces the full content of a note, creating it if absent.
	Save(ctx context.Context, root, id, content string) (NoteInfo, error)

	// Delete removes a note and reports whether a file was removed.
	Delete(ctx context.Context, root, id string) (bool, error)
}

// Watchable defines an interface for repositories that can report changes.
type Watchable interface {
	// Watch emits events for notes under root whose path matches pattern.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context, root, pattern string) (<-chan Event, error)
}
