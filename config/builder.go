package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalidConfig wraps every validation failure produced by Build.
var ErrInvalidConfig = errors.New("invalid configuration")

// envPrefix scopes which environment variables the builder reads.
const envPrefix = "EUREKA_"

// Override mutates the merged configuration before validation.
type Override func(*Config)

// Builder assembles a Config from layered sources. Later layers win:
// defaults, then the YAML file, then the .env file and process
// environment, then explicit overrides.
type Builder struct {
	configFile string
	envFile    string
	overrides  []Override
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfigFile sets the YAML configuration file to load.
func (b *Builder) WithConfigFile(path string) *Builder {
	b.configFile = path
	return b
}

// WithEnvFile sets a .env file whose variables are loaded into the
// process environment before binding.
func (b *Builder) WithEnvFile(path string) *Builder {
	b.envFile = path
	return b
}

// WithOverride registers a mutation applied after all file and
// environment layers merge. Overrides run in registration order.
func (b *Builder) WithOverride(fn Override) *Builder {
	b.overrides = append(b.overrides, fn)
	return b
}

// Build merges every layer, fills defaults, and validates exactly once.
// The returned Config is complete and should not be mutated afterwards.
func (b *Builder) Build() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if b.configFile != "" {
		v.SetConfigFile(b.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, b.configFile, err)
		}
	}

	if b.envFile != "" {
		if err := godotenv.Load(b.envFile); err != nil {
			return nil, fmt.Errorf("%w: loading %s: %v", ErrInvalidConfig, b.envFile, err)
		}
	}
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	for _, fn := range b.overrides {
		fn(&cfg)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults seeds the layer stack. Booleans that default to true live
// here so an explicit false in any layer survives the merge.
func setDefaults(v *viper.Viper) {
	v.SetDefault("eureka.register_with_eureka", true)
	v.SetDefault("eureka.fetch_registry", true)
	v.SetDefault("eureka.filter_up_instances", true)
	v.SetDefault("eureka.prefer_same_zone", true)
	v.SetDefault("eureka.fetch_metadata", true)
	v.SetDefault("eureka.use_delta", false)
	v.SetDefault("eureka.use_dns", false)
	v.SetDefault("eureka.ssl", false)
}

// envSections are the config sections addressable from the environment.
// Every config key is section.leaf, so binding stays exact: no spurious
// nested keys are ever Set past the file layers.
var envSections = map[string]bool{
	"instance": true,
	"eureka":   true,
	"logger":   true,
}

// bindEnvVars maps EUREKA_* environment variables onto config keys:
// EUREKA_INSTANCE_APP becomes instance.app, EUREKA_EUREKA_SERVICE_PATH
// becomes eureka.service_path (underscores inside a leaf name stay
// intact). Variables outside the known sections are ignored.
func bindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], envPrefix) {
			continue
		}
		if key, ok := envKey(strings.TrimPrefix(pair[0], envPrefix)); ok {
			v.Set(key, pair[1])
		}
	}
}

// envKey splits an underscore name into section.leaf, reporting whether
// the section is one the configuration actually has.
func envKey(name string) (string, bool) {
	parts := strings.SplitN(strings.ToLower(name), "_", 2)
	if len(parts) != 2 || parts[1] == "" || !envSections[parts[0]] {
		return "", false
	}
	return parts[0] + "." + parts[1], true
}

var validate = validator.New()

// validateStruct runs tag-based validation and rewraps failures as
// configuration errors.
func validateStruct(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: field %s failed %q validation", ErrInvalidConfig, fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}
