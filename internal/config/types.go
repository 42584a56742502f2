package config

// Config is the root configuration for megabot.
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Auth      AuthConfig      `yaml:"auth,omitempty"`
	MegaAPI   MegaAPIConfig   `yaml:"megaApi,omitempty"`
	LLM       LLMConfig       `yaml:"llm,omitempty"`
	Embedding EmbeddingConfig `yaml:"embedding,omitempty"`
	RAG       RAGConfig       `yaml:"rag,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port           int    `yaml:"port,omitempty"`
	Bind           string `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// AuthConfig protects the operator endpoints (chat, send, documents).
type AuthConfig struct {
	Secret string `yaml:"secret,omitempty"` // bearer token; supports ${ENV_VAR}
}

// MegaAPIConfig configures the WhatsApp messaging gateway.
type MegaAPIConfig struct {
	BaseURL    string `yaml:"baseUrl,omitempty"`
	Token      string `yaml:"token,omitempty"` // supports ${ENV_VAR}
	InstanceID string `yaml:"instanceId,omitempty"`
}

// LLMConfig configures the completion service (OpenAI-compatible).
type LLMConfig struct {
	BaseURL     string   `yaml:"baseUrl,omitempty"`
	APIKey      string   `yaml:"apiKey,omitempty"` // supports ${ENV_VAR}
	Model       string   `yaml:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   int      `yaml:"maxTokens,omitempty"`
}

// EmbeddingConfig configures the embedding service. BaseURL and APIKey
// default to the LLM values when empty.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"baseUrl,omitempty"`
	APIKey     string `yaml:"apiKey,omitempty"`
	Model      string `yaml:"model,omitempty"`
	Dimensions int    `yaml:"dimensions,omitempty"`
}

// RAGConfig controls retrieval over the passage index.
type RAGConfig struct {
	TopK int `yaml:"topK,omitempty"`
}

// SessionConfig defines conversation transcript behavior.
type SessionConfig struct {
	Store    string `yaml:"store,omitempty"` // "sqlite" | "memory"
	MaxTurns int    `yaml:"maxTurns,omitempty"` // history window for generation; 0 = unlimited
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}
