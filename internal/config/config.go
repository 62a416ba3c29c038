package config

import "os"

// Config holds user/system configuration for the resolver.
type Config struct {
	WorkDir  string // Directory holding version directories and resolver state
	ToolName string // Executable name of the managed tool (e.g., crates-lsp)
	Repo     string // Upstream GitHub coordinate (owner/name)
	APIBase  string // GitHub API base URL (override for testing/enterprise)
}

// Defaults targets the crates-lsp language server, the tool this deployment
// is pinned to. The working directory defaults to the process cwd: the host
// runtime gives each plugin instance a private working directory.
func Defaults() Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return Config{
		WorkDir:  wd,
		ToolName: "crates-lsp",
		Repo:     "MathiasPius/crates-lsp",
		APIBase:  "https://api.github.com",
	}
}

// Load returns default config with environment overrides applied.
// Use flags for per-invocation overrides.
func Load() Config {
	cfg := Defaults()
	if v := os.Getenv("LSP_RESOLVER_WORKDIR"); v != "" {
		cfg.WorkDir = v
	}
	if v := os.Getenv("LSP_RESOLVER_REPO"); v != "" {
		cfg.Repo = v
	}
	if v := os.Getenv("LSP_RESOLVER_API"); v != "" {
		cfg.APIBase = v
	}
	return cfg
}
