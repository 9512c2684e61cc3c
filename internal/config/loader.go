package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "BLOBTREE"

	// KeyConfigFile names the override key and environment variable
	// (BLOBTREE_CONFIG) carrying a config file path.
	KeyConfigFile = "config"
)

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// EnvSpec maps a short environment variable onto a config path.
type EnvSpec struct {
	Name string
	Path string
}

// Short names for the settings people set most. Every other key is reachable
// as BLOBTREE_<SECTION>_<KEY>.
var envAliases = []EnvSpec{
	{Name: "LOG_LEVEL", Path: "logging.level"},
	{Name: "LOG_PROFILE", Path: "logging.profile"},
	{Name: "HOST", Path: "server.host"},
	{Name: "PORT", Path: "server.port"},
	{Name: "READ_TIMEOUT", Path: "server.read_timeout"},
	{Name: "WRITE_TIMEOUT", Path: "server.write_timeout"},
	{Name: "SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
	{Name: "PARALLELISM", Path: "browse.parallelism"},
	{Name: "AWS_REGION", Path: "s3.region"},
	{Name: "AWS_PROFILE", Path: "s3.profile"},
	{Name: "S3_ENDPOINT", Path: "s3.endpoint"},
	{Name: "MINIO_ENDPOINT", Path: "minio.endpoint"},
	{Name: "MINIO_ACCESS_KEY", Path: "minio.access_key"},
	{Name: "MINIO_SECRET_KEY", Path: "minio.secret_key"},
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.ready_uri", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("health.enabled", true)

	v.SetDefault("browse.parallelism", 4)
	v.SetDefault("browse.page_size", 1000)
	v.SetDefault("browse.chunk_size", 10)
	v.SetDefault("browse.rate_limit", 0.0)
	v.SetDefault("browse.rate_burst", 0)
	v.SetDefault("browse.max_results", 0)
	v.SetDefault("browse.timeout", "10m")

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.profile", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.force_path_style", false)
	v.SetDefault("s3.delimiter_walk", false)

	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.delimiter_walk", false)

	v.SetDefault("file.root", "/")

	v.SetDefault("filter.path_regex", "")
}

// Load builds the configuration and makes it the current one.
//
// Each override map is nested by section, e.g.
// {"server": {"port": 9000}}. Overrides win over environment variables,
// which win over the config file, which wins over defaults.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	flat := make(map[string]any)
	for _, o := range overrides {
		flatten("", o, flat)
	}

	path := os.Getenv(EnvPrefix + "_CONFIG")
	if p, ok := flat[KeyConfigFile].(string); ok && p != "" {
		path = p
	}
	delete(flat, KeyConfigFile)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for k, val := range flat {
		v.Set(k, val)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Logging.Profile = strings.ToUpper(cfg.Logging.Profile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Browse.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("browse.parallelism must be at least 1, got %d", c.Browse.Parallelism))
	}
	if c.Browse.PageSize < 0 {
		errs = append(errs, fmt.Errorf("browse.page_size must not be negative"))
	}
	if c.Browse.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("browse.chunk_size must not be negative"))
	}
	if c.Browse.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("browse.rate_limit must not be negative"))
	}
	switch c.Logging.Profile {
	case "STRUCTURED", "CONSOLE":
	default:
		errs = append(errs, fmt.Errorf("logging.profile %q must be structured or console", c.Logging.Profile))
	}
	return errors.Join(errs...)
}

// getEnvSpecs returns the short environment variable aliases with the
// prefix applied, sorted by name.
func getEnvSpecs() []EnvSpec {
	specs := make([]EnvSpec, 0, len(envAliases))
	for _, a := range envAliases {
		specs = append(specs, EnvSpec{Name: EnvPrefix + "_" + a.Name, Path: a.Path})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}
