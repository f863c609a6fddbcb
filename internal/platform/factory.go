package platform

import (
	"github.com/aretw0/notebox/pkg/core"
)

// New builds a ready-to-use note service.
//
//	svc, err := platform.New(platform.WithPolicy("nested"), platform.WithReadOnly(true))
func New(opts ...Option) (*core.Service, error) {
	repo, err := Init(opts...)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return core.NewService(repo, o.logger), nil
}
