package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebox/pkg/core"
	"github.com/aretw0/notebox/pkg/workspace"
)

func TestStatic(t *testing.T) {
	dir := t.TempDir()
	s, err := workspace.NewStatic(dir)
	require.NoError(t, err)

	for _, agent := range []string{"", "alice", "../bob"} {
		root, err := s.Root(context.Background(), agent)
		require.NoError(t, err)
		assert.Equal(t, dir, root)
	}

	_, err = workspace.NewStatic(" ")
	assert.ErrorIs(t, err, core.ErrInvalidRoot)
}

func TestPerAgent(t *testing.T) {
	base := t.TempDir()
	p, err := workspace.NewPerAgent(base, "")
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		agent   string
		want    string
		wantErr bool
	}{
		{agent: "", want: filepath.Join(base, workspace.DefaultAgent)},
		{agent: "alice", want: filepath.Join(base, "alice")},
		{agent: "../../etc", want: filepath.Join(base, "etc")},
		{agent: "bob smith", want: filepath.Join(base, "bobsmith")},
		{agent: "...", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.agent, func(t *testing.T) {
			root, err := p.Root(ctx, tt.agent)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidRoot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, root)
		})
	}
}

func TestPerAgent_Agents(t *testing.T) {
	base := t.TempDir()
	p, err := workspace.NewPerAgent(base, "main")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(base, "alice"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, ".cache"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "file"), nil, 0644))

	agents, err := p.Agents()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, agents)
}

func TestNewPerAgent_Validation(t *testing.T) {
	_, err := workspace.NewPerAgent("", "")
	assert.ErrorIs(t, err, core.ErrInvalidRoot)

	_, err = workspace.NewPerAgent(t.TempDir(), "bad agent")
	assert.Error(t, err)
}
