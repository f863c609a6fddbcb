package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/notebox/internal/platform"
	"github.com/aretw0/notebox/pkg/core"
	"github.com/aretw0/notebox/pkg/workspace"
)

var (
	verbose    bool
	configPath string
	rootDir    string
	policy     string
	agent      string
	readOnly   bool
)

// cfg is loaded once per invocation by the root PersistentPreRun.
var cfg *platform.Config

var rootCmd = &cobra.Command{
	Use:   "notebox",
	Short: "A small, traversal-safe store for plain-text notes",
	Long: `notebox keeps notes as plain .md files in a workspace directory.
Ids are sanitized before they reach the filesystem, so no request can
read or write outside the workspace.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loaded, err := loadConfig(cmd)
		if err != nil {
			fatal("Failed to load configuration", err)
		}
		cfg = loaded

		level, _ := platform.ParseLogLevel(cfg.LogLevel)
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $"+platform.ConfigEnv+" or discovered notebox.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", "Workspace root (overrides config)")
	rootCmd.PersistentFlags().StringVar(&policy, "policy", "", "Id policy: flat or nested (overrides config)")
	rootCmd.PersistentFlags().StringVar(&agent, "agent", "", "Agent workspace when agents_dir is configured")
	rootCmd.PersistentFlags().BoolVar(&readOnly, "read-only", false, "Reject every mutation")
}

// loadConfig resolves the configuration: explicit file, then a notebox.yaml
// found above the working directory, then defaults on the working directory.
// Flags override file values.
func loadConfig(cmd *cobra.Command) (*platform.Config, error) {
	path := platform.ConfigPath(configPath)
	root := rootDir
	if path == "" && root == "" {
		if wd, err := os.Getwd(); err == nil {
			if found, err := platform.FindRoot(wd); err == nil {
				candidate := filepath.Join(found, platform.ConfigFileName)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				} else {
					root = found
				}
			}
		}
	}

	loaded, err := platform.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		loaded.Workspace = abs
		loaded.AgentsDir = ""
	}
	if flags.Changed("policy") {
		loaded.Policy = policy
	}
	if flags.Changed("read-only") {
		loaded.ReadOnly = readOnly
	}
	return loaded, loaded.Validate()
}

// openService builds the service and the workspace resolver from cfg.
func openService() (*core.Service, workspace.Resolver) {
	opts := append(cfg.Options(), platform.WithLogger(slog.Default()))
	service, err := platform.New(opts...)
	if err != nil {
		fatal("Failed to initialize notebox", err)
	}

	roots, err := cfg.Roots()
	if err != nil {
		fatal("Invalid workspace", err)
	}
	return service, roots
}

// workspaceRoot resolves the root for the --agent flag.
func workspaceRoot(cmd *cobra.Command, roots workspace.Resolver) string {
	root, err := roots.Root(cmd.Context(), agent)
	if err != nil {
		fatal("Invalid workspace", err)
	}
	return root
}
