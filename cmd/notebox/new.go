package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new [id]",
	Short: "Create a note with a title heading",
	Long:  `Create a new note whose content is a heading derived from the id. Fails if the note exists.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, roots := openService()
		root := workspaceRoot(cmd, roots)

		note, err := service.CreateNote(cmd.Context(), root, args[0])
		if err != nil {
			fatal("Failed to create note", err)
		}

		fmt.Printf("Note created: %s\n", note.Path)
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
