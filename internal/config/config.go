// Package config loads simtree settings from defaults, an optional YAML
// file and SIMTREE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SIMTREE_LOG_LEVEL.
const EnvPrefix = "SIMTREE"

// Config holds application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Compact CompactConfig `mapstructure:"compact"`
	Store   StoreConfig   `mapstructure:"store"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// CompactConfig holds compaction settings.
type CompactConfig struct {
	// Workers bounds batched compaction parallelism.
	Workers int `mapstructure:"workers" validate:"min=1,max=1024"`

	// Capacity is the default k. Zero means callers must pass k.
	Capacity int `mapstructure:"capacity" validate:"min=0"`
}

// StoreConfig holds sqlite settings.
type StoreConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

var validate = validator.New()

// Load reads configuration. path names a YAML config file; when empty,
// SIMTREE_CONFIG is consulted, and with neither only defaults and
// environment overrides apply. A named file that cannot be read is an error.
func Load(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("compact.workers", 4)
	v.SetDefault("compact.capacity", 0)
	v.SetDefault("store.path", "simtree.db")

	v.SetConfigType("yaml")
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks field constraints and reports every violation.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q (value %v)", fieldKey(fe.Namespace()), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// fieldKey turns "Config.Log.Level" into the viper key "log.level".
func fieldKey(ns string) string {
	_, rest, _ := strings.Cut(ns, ".")
	return strings.ToLower(rest)
}

// SlogLevel parses the configured level. Unknown names fall back to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w in the configured format.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
