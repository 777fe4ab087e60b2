package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "TINYQUERY_"

// loggerKey is used to store the logger in a context.
type loggerKey struct{}

// sections are the nested config groups. TINYQUERY_STORE_DSN and --store-dsn
// both address store.dsn.
var sections = []string{"store", "server", "check"}

// pathFlags name flags whose relative values are taken relative to the
// working directory rather than to the config file.
var pathFlags = map[string]string{
	"catalog":       "catalog",
	"functions-dir": "functions_dir",
}

// findConfigFile picks the config file: the explicit path, else
// tinyquery.yaml or tinyquery.yml in dir.
func findConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"tinyquery.yaml", "tinyquery.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// configKey maps a flag or env name (already lowercased, with underscores) to
// its koanf key.
func configKey(name string) string {
	for _, sec := range sections {
		if rest, ok := strings.CutPrefix(name, sec+"_"); ok {
			return sec + "." + rest
		}
	}
	return name
}

// LoadConfig loads configuration from defaults, the config file, environment
// variables and flags, in increasing precedence.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	fileUsed := findConfigFile(cfgFile, cwd)
	baseDir := cwd
	if fileUsed != "" {
		if err := k.Load(file.Provider(fileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", fileUsed, err)
		}
		if abs, err := filepath.Abs(fileUsed); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}

	// 3. Environment: TINYQUERY_STORE_DSN -> store.dsn
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return configKey(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those set explicitly
	flagPaths := make(map[string]string)
	if flags != nil {
		for name, key := range pathFlags {
			if !flags.Changed(name) {
				continue
			}
			if v, _ := flags.GetString(name); v != "" {
				if abs, err := filepath.Abs(v); err == nil {
					flagPaths[key] = abs
				}
			}
		}

		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// -v is shorthand for debug logging.
			if f.Name == "verbose" {
				if f.Value.String() == "true" {
					return "log_level", "debug"
				}
				return "", nil
			}
			return configKey(strings.ReplaceAll(f.Name, "-", "_")), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := unmarshal(k, &cfg); err != nil {
		return nil, err
	}
	cfg.File = fileUsed

	cfg.Catalog = resolvePath(cfg.Catalog, flagPaths["catalog"], baseDir)
	cfg.FunctionsDir = resolvePath(cfg.FunctionsDir, flagPaths["functions_dir"], baseDir)
	cfg.Store.DSN = expandEnvVars(cfg.Store.DSN)
	cfg.Output = strings.ToLower(cfg.Output)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// unmarshal decodes k into cfg. Durations decode from strings such as "5s"
// and log levels through slog.Level's text form.
func unmarshal(k *koanf.Koanf, cfg *Config) error {
	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}
	return nil
}

// resolvePath prefers the flag value, which is already absolute, and
// otherwise resolves a relative path against baseDir.
func resolvePath(path, fromFlag, baseDir string) string {
	if fromFlag != "" {
		return fromFlag
	}
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} references. Unknown variables are left as is.
func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// NewLogger builds the CLI logger: a text handler on w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// configCtxKey is used to store the loaded config in a context.
type configCtxKey struct{}

// WithConfig returns a copy of ctx carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configCtxKey{}, cfg)
}

// FromContext returns the config stored by WithConfig, or nil.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return nil
	}
	cfg, _ := ctx.Value(configCtxKey{}).(*Config)
	return cfg
}

// Default returns the configuration used when nothing was loaded.
func Default() *Config {
	return &Config{
		MaxViewDepth: DefaultMaxViewDepth,
		Output:       DefaultOutput,
		LogLevel:     slog.LevelWarn,
		Server:       ServerConfig{Addr: DefaultServerAddr, ShutdownTimeout: DefaultShutdownTimeout},
		Check:        CheckConfig{Concurrency: DefaultConcurrency},
	}
}
