package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/notebox/pkg/adapters/fs"
	"github.com/aretw0/notebox/pkg/workspace"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "NOTEBOX_CONFIG"

// DefaultListen is the HTTP listen address when none is configured.
const DefaultListen = "127.0.0.1:8080"

// Config is the file-based configuration of a deployment.
type Config struct {
	// Workspace is the single workspace root. Ignored when AgentsDir is set.
	Workspace string `yaml:"workspace"`

	// AgentsDir gives every agent its own workspace below it.
	AgentsDir string `yaml:"agents_dir"`

	// DefaultAgent serves requests that name no agent. Default: "default".
	DefaultAgent string `yaml:"default_agent"`

	// Policy is the id sanitization policy: "flat" or "nested".
	Policy string `yaml:"policy"`

	// NotesDir is the notes subdirectory (nested: the id prefix).
	NotesDir string `yaml:"notes_dir"`

	// Sort is the listing order: "modified" or "name".
	Sort string `yaml:"sort"`

	// ReadOnly rejects every mutation.
	ReadOnly bool `yaml:"read_only"`

	// Listen is the HTTP listen address for serve.
	Listen string `yaml:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Workspace: ".",
		Policy:    fs.PolicyFlat,
		Listen:    DefaultListen,
		LogLevel:  "info",
	}
}

// ConfigPath picks the config file: the flag value, then NOTEBOX_CONFIG.
// Empty means no file.
func ConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(ConfigEnv)
}

// LoadConfig reads path over the defaults. Relative workspace paths are
// resolved against the directory holding the file. ${VAR} and
// ${VAR:-default} are expanded in paths.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.Workspace = resolvePath(base, expandVars(cfg.Workspace))
	cfg.AgentsDir = resolvePath(base, expandVars(cfg.AgentsDir))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Workspace == "" && c.AgentsDir == "" {
		errs = append(errs, errors.New("workspace or agents_dir is required"))
	}
	if _, err := fs.NewResolver(c.Policy, c.NotesDir); err != nil {
		errs = append(errs, err)
	}
	if _, err := fs.ParseSortOrder(c.Sort); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.DefaultAgent != "" && fs.SanitizeID(c.DefaultAgent) != c.DefaultAgent {
		errs = append(errs, fmt.Errorf("invalid default_agent: %q", c.DefaultAgent))
	}

	return errors.Join(errs...)
}

// Options converts the file settings into service options.
func (c *Config) Options() []Option {
	return []Option{
		WithPolicy(c.Policy),
		WithNotesDir(c.NotesDir),
		WithSort(c.Sort),
		WithReadOnly(c.ReadOnly),
	}
}

// Roots builds the workspace resolver: per agent when AgentsDir is set.
func (c *Config) Roots() (workspace.Resolver, error) {
	if c.AgentsDir != "" {
		return workspace.NewPerAgent(c.AgentsDir, c.DefaultAgent)
	}
	return workspace.NewStatic(c.Workspace)
}

// ParseLogLevel maps a level name onto slog. Empty means info.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", name)
	}
}
