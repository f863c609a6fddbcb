package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Policy         string     `json:"policy"`
	Recursive      bool       `json:"recursive"`
	Sort           string     `json:"sort"`
	ReadOnly       bool       `json:"read_only"`
	ActiveWatchers int        `json:"active_watchers"`
	LastWatchStart *time.Time `json:"last_watch_start,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RepositoryState{
		Policy:         r.resolver.Policy(),
		Recursive:      r.resolver.Recursive(),
		Sort:           string(r.config.Sort),
		ReadOnly:       r.config.ReadOnly,
		ActiveWatchers: r.activeWatchers,
		LastWatchStart: r.lastWatchStart,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) watcherStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.activeWatchers++
	r.lastWatchStart = &now
}

func (r *Repository) watcherStopped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeWatchers--
}
