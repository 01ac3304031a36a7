package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// DBPath is the path of the policy database file.
	DBPath string `koanf:"db_path" validate:"required"`

	// RebuildInterval is the scheduled rebuild period in seconds.
	RebuildInterval int `koanf:"rebuild_interval" validate:"required,gte=1"`

	// CacheTTL is the lifetime of compiled ACL cache entries in seconds.
	// It must be at least the rebuild interval, or entries would expire
	// between scheduled rebuilds.
	CacheTTL int `koanf:"cache_ttl" validate:"required,gtefield=RebuildInterval"`

	// CacheSize caps the number of entries held by the in-memory cache.
	CacheSize int `koanf:"cache_size" validate:"required,gte=1"`

	// BloomFPRate is the target false-positive rate for the hot-path
	// decision prefilter.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"required,gt=0,lt=1"`

	// MetricsAddr is the host:port the metrics endpoint binds to.
	MetricsAddr string `koanf:"metrics_addr" validate:"required,host_port"`
}

// DEFAULT_APP_CONFIG defines the default settings for the ACL engine:
// scheduler every 60 s, cache TTL at double the scheduler period so two
// consecutive missed rebuilds are tolerated before the cache goes empty.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:             "prod",
	LogLevel:        "info",
	DBPath:          "/var/lib/dns-acl/policies.db",
	RebuildInterval: 60,
	CacheTTL:        120,
	CacheSize:       4096,
	BloomFPRate:     0.01,
	MetricsAddr:     "127.0.0.1:9101",
}

// validHostPort validates a host:port value. The host may be a name or an
// IP; the port must be numeric and in range.
func validHostPort(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil || host == "" || port == "" {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0 && portNum < 65536
}

// envLoader loads environment variables with the prefix "ACL_", lowercasing
// keys and trimming the prefix. It can be swapped in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "ACL_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "ACL_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG via the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "host_port" validator.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("host_port", validHostPort)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
