package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a note from the workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, roots := openService()
		root := workspaceRoot(cmd, roots)

		deleted, err := service.DeleteNote(cmd.Context(), root, args[0])
		if err != nil {
			fatal("Error deleting note", err)
		}
		if !deleted {
			fmt.Fprintf(os.Stderr, "Nothing to delete: %s\n", args[0])
			os.Exit(1)
		}

		fmt.Printf("Note deleted: %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
