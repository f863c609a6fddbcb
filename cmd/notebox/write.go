package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	writeID      string
	writeContent string
	writeStdin   bool
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write a note",
	Long: `Create or replace a note with the given id and content.
With --stdin the content is read from standard input.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		content := writeContent
		if writeStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				fatal("Failed to read stdin", err)
			}
			content = string(data)
		}

		service, roots := openService()
		root := workspaceRoot(cmd, roots)

		info, err := service.SaveNote(cmd.Context(), root, writeID, content)
		if err != nil {
			fatal("Failed to save note", err)
		}

		fmt.Printf("Note '%s' saved (%d bytes).\n", info.ID, info.Size)
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().StringVar(&writeID, "id", "", "Note id")
	writeCmd.Flags().StringVar(&writeContent, "content", "", "Note content")
	writeCmd.Flags().BoolVar(&writeStdin, "stdin", false, "Read content from standard input")
	_ = writeCmd.MarkFlagRequired("id")
	writeCmd.MarkFlagsMutuallyExclusive("content", "stdin")
}
