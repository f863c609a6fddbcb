package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
)

// Service handles the business logic for notes.
// It validates caller input before anything reaches the repository.
type Service struct {
	repo   Repository
	logger *slog.Logger

	mu            sync.RWMutex
	activeWatches int
	failures      int
}

// NewService creates a new Service. A nil logger discards output.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Repository returns the underlying storage adapter.
func (s *Service) Repository() Repository {
	return s.repo
}

// ListNotes returns the metadata of every note in the workspace.
func (s *Service) ListNotes(ctx context.Context, root string) ([]NoteInfo, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	notes, err := s.repo.List(ctx, root)
	if err != nil {
		s.fail("list notes", err, "root", root)
		return nil, err
	}
	s.logger.Debug("listed notes", "root", root, "count", len(notes))
	return notes, nil
}

// GetNote retrieves a note with its content.
// An empty id is reported as ErrNotFound like any other unresolvable id.
func (s *Service) GetNote(ctx context.Context, root, id string) (Note, error) {
	if err := checkRoot(root); err != nil {
		return Note{}, err
	}
	if strings.TrimSpace(id) == "" {
		return Note{}, fmt.Errorf("%w: %w", ErrNotFound, ErrInvalidID)
	}
	note, err := s.repo.Get(ctx, root, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.fail("get note", err, "root", root, "id", id)
		}
		return Note{}, err
	}
	return note, nil
}

// SaveNote replaces the content of a note, creating it on first write.
func (s *Service) SaveNote(ctx context.Context, root, id, content string) (NoteInfo, error) {
	if err := checkRoot(root); err != nil {
		return NoteInfo{}, err
	}
	if strings.TrimSpace(id) == "" {
		return NoteInfo{}, fmt.Errorf("%w: id cannot be empty", ErrInvalidID)
	}
	info, err := s.repo.Save(ctx, root, id, content)
	if err != nil {
		if !IsValidation(err) && !errors.Is(err, ErrReadOnly) {
			s.fail("save note", err, "root", root, "id", id)
		}
		return NoteInfo{}, err
	}
	s.logger.Debug("saved note", "root", root, "id", info.ID, "size", info.Size)
	return info, nil
}

// CreateNote writes a new note holding only a title heading.
// It fails with ErrAlreadyExists when the note is already present.
func (s *Service) CreateNote(ctx context.Context, root, id string) (Note, error) {
	if err := checkRoot(root); err != nil {
		return Note{}, err
	}
	if strings.TrimSpace(id) == "" {
		return Note{}, fmt.Errorf("%w: id cannot be empty", ErrInvalidID)
	}

	existing, err := s.repo.Get(ctx, root, id)
	switch {
	case err == nil:
		return Note{}, fmt.Errorf("%w: %s", ErrAlreadyExists, existing.ID)
	case errors.Is(err, ErrInvalidID):
		return Note{}, err
	case !errors.Is(err, ErrNotFound):
		s.fail("create note", err, "root", root, "id", id)
		return Note{}, err
	}

	content := "# " + TitleFromID(id) + "\n\n"
	info, err := s.SaveNote(ctx, root, id, content)
	if err != nil {
		return Note{}, err
	}
	return Note{NoteInfo: info, Content: content}, nil
}

// DeleteNote removes a note. Missing notes and invalid ids report false.
func (s *Service) DeleteNote(ctx context.Context, root, id string) (bool, error) {
	if err := checkRoot(root); err != nil {
		return false, err
	}
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	deleted, err := s.repo.Delete(ctx, root, id)
	if err != nil {
		if !errors.Is(err, ErrReadOnly) {
			s.fail("delete note", err, "root", root, "id", id)
		}
		return false, err
	}
	s.logger.Debug("delete note", "root", root, "id", id, "deleted", deleted)
	return deleted, nil
}

// Watch observes changes in the workspace if the repository supports it.
func (s *Service) Watch(ctx context.Context, root, pattern string) (<-chan Event, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, errors.New("repository does not support watching")
	}
	events, err := w.Watch(ctx, root, pattern)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.activeWatches++
	s.mu.Unlock()

	// The repository closes events when the watch ends; the count follows it.
	out := make(chan Event, cap(events))
	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			s.activeWatches--
			s.mu.Unlock()
		}()
		for e := range events {
			select {
			case out <- e:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

func (s *Service) fail(op string, err error, attrs ...any) {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
	s.logger.Error(op+" failed", append(attrs, "error", err)...)
}

func checkRoot(root string) error {
	if strings.TrimSpace(root) == "" {
		return fmt.Errorf("%w: root cannot be empty", ErrInvalidRoot)
	}
	return nil
}

// TitleFromID derives a human title from a note id or path.
// "notes/weekly_sync-2024.md" becomes "weekly sync 2024".
func TitleFromID(id string) string {
	name := path.Base(strings.ReplaceAll(id, `\`, "/"))
	name = strings.TrimSuffix(name, ".md")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "Note"
	}
	return name
}
