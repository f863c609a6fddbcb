package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/notebox/pkg/adapters/lifecycle"
	"github.com/aretw0/notebox/pkg/core"
)

var (
	watchPattern string
	watchJSON    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print note changes as they happen",
	Long: `Watch the workspace and print one line per created, modified or deleted note
until interrupted. The pattern filters on the note path (doublestar syntax).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		service, roots := openService()
		root := workspaceRoot(cmd, roots)
		ctx := cmd.Context()

		events, err := service.Watch(ctx, root, watchPattern)
		if err != nil {
			fatal("Failed to watch", err)
		}

		source := lifecycle.NewSource(events)
		if err := source.Start(ctx); err != nil {
			fatal("Failed to start event source", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		for e := range source.Events() {
			if watchJSON {
				if err := encoder.Encode(e); err != nil {
					fatal("Error encoding JSON", err)
				}
				continue
			}
			if ne, ok := e.(core.Event); ok {
				fmt.Printf("%s %s\n", time.Unix(ne.Timestamp, 0).Format(time.TimeOnly), ne)
				continue
			}
			fmt.Println(e.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchPattern, "pattern", "p", "", "Path filter, e.g. \"notes/journal/**\"")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Output one JSON object per event")
}
