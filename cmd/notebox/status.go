package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	"github.com/aretw0/notebox/pkg/adapters/fs"
	"github.com/aretw0/notebox/pkg/workspace"
)

var statusDiagram bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configuration and state of the note store",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		service, roots := openService()
		root := workspaceRoot(cmd, roots)

		notes, err := service.ListNotes(cmd.Context(), root)
		if err != nil {
			fatal("Error listing notes", err)
		}

		var repoState fs.RepositoryState
		if intro, ok := service.Repository().(introspection.Introspectable); ok {
			repoState, _ = intro.State().(fs.RepositoryState)
		}

		if statusDiagram {
			config := introspection.DefaultDiagramConfig()
			config.SecondaryID = "workspace"
			config.SecondaryLabel = "Workspace Topology"
			fmt.Println(introspection.TreeDiagram(buildWorkspaceTree(root, len(notes), repoState), config))
			return
		}

		report := map[string]any{
			"workspace":  root,
			"notes":      len(notes),
			"service":    service.State(),
			"repository": repoState,
		}
		if lister, ok := roots.(workspace.AgentLister); ok {
			agents, err := lister.Agents()
			if err != nil {
				fatal("Error listing agents", err)
			}
			report["agents"] = agents
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(report)
		if err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

type workspaceNode struct {
	Name     string
	Status   string
	Metadata map[string]string
	Children []workspaceNode
}

func buildWorkspaceTree(root string, count int, state fs.RepositoryState) workspaceNode {
	watcherStatus := "suspended"
	if state.ActiveWatchers > 0 {
		watcherStatus = "running"
	}

	return workspaceNode{
		Name:   "Workspace",
		Status: "running",
		Metadata: map[string]string{
			"type": "container",
			"path": root,
		},
		Children: []workspaceNode{{
			Name:   "Repository",
			Status: "running",
			Metadata: map[string]string{
				"type":      "process",
				"policy":    state.Policy,
				"sort":      state.Sort,
				"notes":     fmt.Sprintf("%d", count),
				"read_only": fmt.Sprintf("%t", state.ReadOnly),
			},
			Children: []workspaceNode{{
				Name:   "Watcher",
				Status: watcherStatus,
				Metadata: map[string]string{
					"type": "goroutine",
				},
			}},
		}},
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusDiagram, "diagram", false, "Print a Mermaid diagram instead of JSON")
}
