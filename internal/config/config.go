package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the complete lfsd configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (LFSD_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Listen contains listener addresses and TLS material.
	Listen ListenConfig `mapstructure:"listen"`

	// Server contains server-wide settings.
	Server ServerConfig `mapstructure:"server"`

	// Storage selects the content store and its type-specific settings.
	Storage StorageConfig `mapstructure:"storage"`

	// Auth selects the authentication policy.
	Auth AuthConfig `mapstructure:"auth"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`
}

// ListenConfig holds listener addresses. The HTTPS listener runs only when
// both certificate and key are configured.
type ListenConfig struct {
	HTTP     string `mapstructure:"http" validate:"required"`
	HTTPS    string `mapstructure:"https"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// PublicURL overrides the scheme/host used in links embedded in JSON
	// responses. Empty means "derive from the incoming request".
	PublicURL string `mapstructure:"public_url"`
}

// StorageConfig specifies content store configuration. Type selects the
// implementation; only the matching section is used.
type StorageConfig struct {
	Type       string           `mapstructure:"type" validate:"required,oneof=filesystem s3"`
	Filesystem FilesystemConfig `mapstructure:"filesystem"`
	S3         S3Config         `mapstructure:"s3"`
}

// FilesystemConfig configures the local filesystem store. Objects live under
// <root>/.lfs.
type FilesystemConfig struct {
	Root string `mapstructure:"root"`
}

// S3Config configures the S3-backed store.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Secure    bool   `mapstructure:"secure"`
}

// AuthConfig selects the authentication policy.
type AuthConfig struct {
	Type     string `mapstructure:"type" validate:"required,oneof=none basic"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

var validate = validator.New()

// Load loads configuration from file, environment, and defaults. configPath
// may be empty, in which case only env vars and defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("LFSD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("listen.http", ":8080")
	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.filesystem.root", "./data")
	v.SetDefault("auth.type", "none")
	v.SetDefault("logging.level", "info")
}

// Validate validates the configuration using struct tags plus the rules that
// cannot be expressed in tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	switch cfg.Storage.Type {
	case "filesystem":
		if cfg.Storage.Filesystem.Root == "" {
			return fmt.Errorf("storage.filesystem.root: required when storage.type is filesystem")
		}
	case "s3":
		if cfg.Storage.S3.Endpoint == "" || cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3: endpoint and bucket are required when storage.type is s3")
		}
	}

	if cfg.Auth.Type == "basic" && (cfg.Auth.Username == "" || cfg.Auth.Password == "") {
		return fmt.Errorf("auth: username and password are required when auth.type is basic")
	}

	if (cfg.Listen.CertFile == "") != (cfg.Listen.KeyFile == "") {
		return fmt.Errorf("listen: cert_file and key_file must be set together")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
