package types

// AppConfig represents the complete application configuration
type AppConfig struct {
	Verbose bool         `mapstructure:"verbose"`
	Config  string       `mapstructure:"config"`
	Data    DataConfig   `mapstructure:"data" validate:"required"`
	Git     GitConfig    `mapstructure:"git"`
	Server  ServerConfig `mapstructure:"server"`
}

// DataConfig holds storage settings shared by every workspace store and
// the registry.
type DataConfig struct {
	// Dir is the base directory holding registry.db and the
	// workspaces/ subdirectory. Defaults to ~/.taskmesh.
	Dir string `mapstructure:"dir" validate:"required"`
	// BusyTimeoutMS bounds how long a write waits for the single-writer
	// lock before failing.
	BusyTimeoutMS int `mapstructure:"busyTimeoutMs" validate:"omitempty,min=100,max=60000"`
}

// GitConfig holds settings for the audit engine's git shell-outs.
type GitConfig struct {
	// TimeoutSeconds bounds each git invocation.
	TimeoutSeconds int `mapstructure:"timeoutSeconds" validate:"omitempty,min=1,max=120"`
}

// ServerConfig holds settings for the read-only HTTP API.
type ServerConfig struct {
	Port           int      `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}
