package model

import "time"

// Config holds the complete wikigap configuration
type Config struct {
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Settings  Settings        `yaml:"settings" mapstructure:"settings"`
	Dispatch  DispatchConfig  `yaml:"dispatch" mapstructure:"dispatch"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Templates TemplatesConfig `yaml:"templates" mapstructure:"templates"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
}

// StorageConfig selects the key-value backend for the persisted state
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // memory, file, sqlite, postgres
	Path    string `yaml:"path" mapstructure:"path"`       // file or sqlite path
	DSN     string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// RateLimit is a fixed-window request allowance for one action
type RateLimit struct {
	MaxRequests int           `yaml:"max_requests" mapstructure:"max_requests"`
	Window      time.Duration `yaml:"window" mapstructure:"window"`
}

// DispatchConfig controls the request dispatcher middleware
type DispatchConfig struct {
	RateLimits    map[string]RateLimit `yaml:"rate_limits" mapstructure:"rate_limits"`
	RetryAttempts int                  `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryDelay    time.Duration        `yaml:"retry_delay" mapstructure:"retry_delay"`
}

// HTTPConfig controls page fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the byte cache for remote templates and wiki API responses
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// LLMConfig configures the hosted text-generation provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // huggingface, openai, gemini, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"` // empty selects the provider default
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// TemplatesConfig locates template overrides
type TemplatesConfig struct {
	Dir     string `yaml:"dir,omitempty" mapstructure:"dir"`
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Watch   bool   `yaml:"watch" mapstructure:"watch"`
}

// AuditConfig controls bulk repository auditing
type AuditConfig struct {
	Workers           int     `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
	APIURL            string  `yaml:"api_url" mapstructure:"api_url"`
}

// ExportConfig controls where export artifacts are uploaded
type ExportConfig struct {
	S3Endpoint  string `yaml:"s3_endpoint,omitempty" mapstructure:"s3_endpoint"`
	S3Bucket    string `yaml:"s3_bucket,omitempty" mapstructure:"s3_bucket"`
	S3Region    string `yaml:"s3_region,omitempty" mapstructure:"s3_region"`
	S3AccessKey string `yaml:"-" mapstructure:"s3_access_key"`
	S3SecretKey string `yaml:"-" mapstructure:"s3_secret_key"`
	S3UseSSL    bool   `yaml:"s3_use_ssl" mapstructure:"s3_use_ssl"`
}

// ServerConfig controls the HTTP dispatcher surface
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// Version is reported by the CLI and stamped into export artifacts
const Version = "1.0.0"

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "~/.wikigap/state.db",
		},
		Settings: DefaultSettings(),
		Dispatch: DispatchConfig{
			RateLimits: map[string]RateLimit{
				"log_gap":        {MaxRequests: 5, Window: time.Second},
				"get_repository": {MaxRequests: 2, Window: time.Second},
			},
			RetryAttempts: 3,
			RetryDelay:    time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "wikigap/" + Version + " (+https://github.com/ppiankov/wikigap)",
			MaxBodyBytes:  5_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "~/.wikigap/cache",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "",
			Timeout:   60,
			MaxTokens: 1000,
		},
		Templates: TemplatesConfig{},
		Audit: AuditConfig{
			Workers:           4,
			RequestsPerSecond: 2,
			BurstSize:         2,
			APIURL:            "https://en.wikipedia.org/w/api.php",
		},
		Export: ExportConfig{
			S3Region: "us-east-1",
			S3UseSSL: true,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
