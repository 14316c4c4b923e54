package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	S3        S3Config
	Log       LogConfig
	CORS      CORSConfig
	Reasoning ReasoningConfig
	Session   SessionConfig
	Enrich    EnrichConfig
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ReasoningConfig holds settings for the reasoning provider used for mapping
// inference and record enrichment.
type ReasoningConfig struct {
	ResponsesURL  string `mapstructure:"responses_url"`
	Endpoint      string `mapstructure:"endpoint"`
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	SecondaryURL  string `mapstructure:"secondary_url"`
	SecondaryKey  string `mapstructure:"secondary_key"`
	FallbackModel string `mapstructure:"fallback_model"`

	ReasoningEffort string        `mapstructure:"reasoning_effort"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	BaseBackoff     time.Duration `mapstructure:"base_backoff"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	RequestsPerSec  float64       `mapstructure:"requests_per_sec"`

	LogRequestBody  bool `mapstructure:"log_request_body"`
	LogResponseText bool `mapstructure:"log_response_text"`
	LogMaxChars     int  `mapstructure:"log_max_chars"`
}

// ResolveURL returns the primary responses URL. An explicit ResponsesURL wins;
// otherwise the URL is derived from Endpoint.
func (r *ReasoningConfig) ResolveURL() (string, error) {
	if u := strings.TrimSpace(r.ResponsesURL); u != "" {
		return u, nil
	}
	endpoint := strings.TrimRight(strings.TrimSpace(r.Endpoint), "/")
	if endpoint == "" {
		return "", fmt.Errorf("reasoning.endpoint or reasoning.responses_url must be set")
	}
	switch {
	case strings.HasSuffix(endpoint, "/openai/v1/responses"):
		return endpoint, nil
	case strings.HasSuffix(endpoint, "/openai/v1"):
		return endpoint + "/responses", nil
	default:
		return endpoint + "/openai/v1/responses", nil
	}
}

// SecondaryConfigured reports whether both a secondary URL and credential are set.
func (r *ReasoningConfig) SecondaryConfigured() bool {
	return strings.TrimSpace(r.SecondaryURL) != "" && strings.TrimSpace(r.SecondaryKey) != ""
}

// SessionConfig holds parse session settings.
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	// PurgeInterval and Retention drive the janitor that deletes stale rows.
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
	Retention     time.Duration `mapstructure:"retention"`
}

// EnrichConfig holds batch enrichment settings.
type EnrichConfig struct {
	MaxConcurrency  int     `mapstructure:"max_concurrency"`
	Model           string  `mapstructure:"model"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds session store connection settings.
type DBConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MaxOpen    int    `mapstructure:"max_open"`
	MaxIdle    int    `mapstructure:"max_idle"`
}

// DSN returns the connection string for the configured driver.
func (d *DBConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds settings for validating caller tokens.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// S3Config holds blob store settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the SCOREPARSE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCOREPARSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key, "SCOREPARSE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	cfg := &Config{}

	// Platforms like Railway and Render set PORT; use it unless overridden.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SCOREPARSE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Driver:     v.GetString("db.driver"),
		Host:       v.GetString("db.host"),
		Port:       v.GetInt("db.port"),
		User:       v.GetString("db.user"),
		Password:   v.GetString("db.password"),
		Name:       v.GetString("db.name"),
		SSLMode:    v.GetString("db.sslmode"),
		SQLitePath: v.GetString("db.sqlite_path"),
		MaxOpen:    v.GetInt("db.max_open"),
		MaxIdle:    v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret: v.GetString("jwt.secret"),
		Issuer: v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Reasoning = ReasoningConfig{
		ResponsesURL:    v.GetString("reasoning.responses_url"),
		Endpoint:        v.GetString("reasoning.endpoint"),
		APIKey:          v.GetString("reasoning.api_key"),
		Model:           v.GetString("reasoning.model"),
		SecondaryURL:    v.GetString("reasoning.secondary_url"),
		SecondaryKey:    v.GetString("reasoning.secondary_key"),
		FallbackModel:   v.GetString("reasoning.fallback_model"),
		ReasoningEffort: v.GetString("reasoning.reasoning_effort"),
		Timeout:         v.GetDuration("reasoning.timeout"),
		MaxRetries:      v.GetInt("reasoning.max_retries"),
		BaseBackoff:     v.GetDuration("reasoning.base_backoff"),
		MaxBackoff:      v.GetDuration("reasoning.max_backoff"),
		RequestsPerSec:  v.GetFloat64("reasoning.requests_per_sec"),
		LogRequestBody:  v.GetBool("reasoning.log_request_body"),
		LogResponseText: v.GetBool("reasoning.log_response_text"),
		LogMaxChars:     v.GetInt("reasoning.log_max_chars"),
	}

	cfg.Session = SessionConfig{
		TTL:           v.GetDuration("session.ttl"),
		PurgeInterval: v.GetDuration("session.purge_interval"),
		Retention:     v.GetDuration("session.retention"),
	}

	cfg.Enrich = EnrichConfig{
		MaxConcurrency:  v.GetInt("enrich.max_concurrency"),
		Model:           v.GetString("enrich.model"),
		Temperature:     v.GetFloat64("enrich.temperature"),
		MaxOutputTokens: v.GetInt("enrich.max_output_tokens"),
	}
	// The parsing model falls back to the enrichment model when unset.
	if cfg.Reasoning.Model == "" {
		cfg.Reasoning.Model = cfg.Enrich.Model
	}
	if cfg.Enrich.Model == "" {
		cfg.Enrich.Model = cfg.Reasoning.Model
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.driver", "pgx")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "scoreparse")
	v.SetDefault("db.password", "scoreparse_secret")
	v.SetDefault("db.name", "scoreparse_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.sqlite_path", "scoreparse.db")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "scoreparse")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "scoreparse-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.max_file_size_mb", 20)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Reasoning provider defaults
	v.SetDefault("reasoning.responses_url", "")
	v.SetDefault("reasoning.endpoint", "")
	v.SetDefault("reasoning.api_key", "")
	v.SetDefault("reasoning.model", "")
	v.SetDefault("reasoning.secondary_url", "")
	v.SetDefault("reasoning.secondary_key", "")
	v.SetDefault("reasoning.fallback_model", "")
	v.SetDefault("reasoning.reasoning_effort", "high")
	v.SetDefault("reasoning.timeout", "600s")
	v.SetDefault("reasoning.max_retries", 2)
	v.SetDefault("reasoning.base_backoff", "800ms")
	v.SetDefault("reasoning.max_backoff", "8s")
	v.SetDefault("reasoning.requests_per_sec", 0)
	v.SetDefault("reasoning.log_request_body", false)
	v.SetDefault("reasoning.log_response_text", false)
	v.SetDefault("reasoning.log_max_chars", 120000)

	v.SetDefault("session.ttl", "10m")
	v.SetDefault("session.purge_interval", "1h")
	v.SetDefault("session.retention", "24h")

	// Enrichment defaults
	v.SetDefault("enrich.max_concurrency", 50)
	v.SetDefault("enrich.model", "")
	v.SetDefault("enrich.temperature", 0.5)
	v.SetDefault("enrich.max_output_tokens", 1000)
}
