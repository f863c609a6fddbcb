package platform

import (
	"fmt"

	"github.com/aretw0/notebox/pkg/adapters/fs"
	"github.com/aretw0/notebox/pkg/core"
)

// Init builds the configured repository without touching the filesystem.
// Directories are created lazily by the first list or save.
func Init(opts ...Option) (core.Repository, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.repository != nil {
		return o.repository, nil
	}

	switch o.adapter {
	case "fs":
		return initFS(o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

// initFS handles the configuration of the filesystem adapter.
func initFS(o *options) (*fs.Repository, error) {
	resolver, err := fs.NewResolver(o.policy, o.notesDir)
	if err != nil {
		return nil, err
	}
	order, err := fs.ParseSortOrder(o.sort)
	if err != nil {
		return nil, err
	}

	if o.logger != nil {
		o.logger.Debug("filesystem repository configured",
			"policy", resolver.Policy(),
			"notes_dir", o.notesDir,
			"read_only", o.readOnly,
		)
	}

	return fs.NewRepository(fs.Config{
		Resolver:     resolver,
		Sort:         order,
		ReadOnly:     o.readOnly,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
		EventBuffer:  o.eventBuffer,
	}), nil
}
