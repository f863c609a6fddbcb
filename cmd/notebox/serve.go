package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/notebox/pkg/adapters/httpapi"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the notes over HTTP",
	Long: `Serve the REST routes under /api and the RPC dispatcher at /rpc.
The server carries no authentication; bind it to a trusted interface.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		service, roots := openService()

		addr := cfg.Listen
		if cmd.Flags().Changed("listen") {
			addr = listenAddr
		}

		server, err := httpapi.New(httpapi.Config{
			Service: service,
			Roots:   roots,
			Logger:  slog.Default(),
		})
		if err != nil {
			fatal("Failed to build server", err)
		}

		if err := server.Serve(cmd.Context(), addr, nil); err != nil {
			fatal("Server failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (overrides config)")
}
