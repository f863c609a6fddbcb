// Package workspace decides which directory a request operates on.
//
// The note store takes its root on every call; this package is the single
// place where that root is chosen, either a fixed directory or one
// directory per agent under a common base.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/notebox/pkg/adapters/fs"
	"github.com/aretw0/notebox/pkg/core"
)

// DefaultAgent is used by PerAgent when a request names no agent.
const DefaultAgent = "default"

// Resolver supplies the workspace root for an agent.
type Resolver interface {
	Root(ctx context.Context, agentID string) (string, error)
}

// AgentLister is implemented by resolvers that keep one root per agent.
type AgentLister interface {
	Agents() ([]string, error)
}

// Static serves every agent from the same directory.
type Static struct {
	Dir string
}

// NewStatic returns a Static resolver for dir, made absolute.
func NewStatic(dir string) (*Static, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: workspace cannot be empty", core.ErrInvalidRoot)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRoot, err)
	}
	return &Static{Dir: abs}, nil
}

// Root ignores agentID.
func (s *Static) Root(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Dir, nil
}

// PerAgent gives each agent its own workspace below Base.
// Agent ids go through the same allow-list as flat note ids.
type PerAgent struct {
	Base    string
	Default string
}

// NewPerAgent returns a PerAgent resolver rooted at base.
func NewPerAgent(base, defaultAgent string) (*PerAgent, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("%w: agents directory cannot be empty", core.ErrInvalidRoot)
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRoot, err)
	}
	if defaultAgent == "" {
		defaultAgent = DefaultAgent
	}
	if fs.SanitizeID(defaultAgent) != defaultAgent {
		return nil, fmt.Errorf("invalid default agent: %q", defaultAgent)
	}
	return &PerAgent{Base: abs, Default: defaultAgent}, nil
}

// Root returns Base/<agent>. An empty agent id selects Default; an id
// with no allowed characters is rejected.
func (p *PerAgent) Root(ctx context.Context, agentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	agent := p.Default
	if strings.TrimSpace(agentID) != "" {
		agent = fs.SanitizeID(agentID)
		if agent == "" {
			return "", fmt.Errorf("%w: agent %q has no allowed characters", core.ErrInvalidRoot, agentID)
		}
	}
	return filepath.Join(p.Base, agent), nil
}

// Agents lists the agent directories that exist below Base.
func (p *PerAgent) Agents() ([]string, error) {
	entries, err := os.ReadDir(p.Base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read agents directory: %w", err)
	}
	var agents []string
	for _, e := range entries {
		if e.IsDir() && fs.SanitizeID(e.Name()) == e.Name() {
			agents = append(agents, e.Name())
		}
	}
	return agents, nil
}

var _ Resolver = (*Static)(nil)
var _ Resolver = (*PerAgent)(nil)
var _ AgentLister = (*PerAgent)(nil)
