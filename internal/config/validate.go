package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// requiredSettings are the credentials and endpoints the relay cannot run
// without. Serve refuses to start while any of them is missing.
var requiredSettings = []struct {
	path string
	get  func(*Config) string
}{
	{"auth.secret", func(c *Config) string { return c.Auth.Secret }},
	{"megaApi.baseUrl", func(c *Config) string { return c.MegaAPI.BaseURL }},
	{"megaApi.token", func(c *Config) string { return c.MegaAPI.Token }},
	{"megaApi.instanceId", func(c *Config) string { return c.MegaAPI.InstanceID }},
	{"llm.apiKey", func(c *Config) string { return c.LLM.APIKey }},
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	for _, req := range requiredSettings {
		if req.get(cfg) == "" {
			issues = append(issues, ValidationIssue{
				Path:    req.path,
				Message: "required setting is missing",
			})
		}
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	validStores := []string{"sqlite", "memory"}
	if cfg.Session.Store != "" && !slices.Contains(validStores, cfg.Session.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "session.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Session.Store),
		})
	}

	if cfg.Session.MaxTurns < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.maxTurns",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Session.MaxTurns),
		})
	}

	if cfg.RAG.TopK < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "rag.topK",
			Message: fmt.Sprintf("must be >= 1, got %d", cfg.RAG.TopK),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validStyles := []string{"pretty", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validStyles, cfg.Logging.Style),
		})
	}

	return issues
}
