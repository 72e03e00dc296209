package conf

import (
	"errors"
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/loopdocs/docdesk/internal/gateway"
	"github.com/loopdocs/docdesk/internal/log"
	"github.com/loopdocs/docdesk/internal/server"
	"github.com/loopdocs/docdesk/internal/server/biz"
	"github.com/loopdocs/docdesk/internal/store"
)

// Config is the full configuration of the docdesk server, loaded from the
// docdesk.yml config file and DOCDESK_* environment variables.
type Config struct {
	Server  server.Config  `conf:"server" yaml:"server" json:"server"`
	DB      store.Config   `conf:"db" yaml:"db" json:"db"`
	Log     log.Config     `conf:"log" yaml:"log" json:"log"`
	Auth    biz.AuthConfig `conf:"auth" yaml:"auth" json:"auth"`
	Gateway gateway.Config `conf:"gateway" yaml:"gateway" json:"gateway"`
}

func Default() Config {
	return Config{
		Server:  server.DefaultConfig(),
		DB:      store.DefaultConfig(),
		Log:     log.DefaultConfig(),
		Auth:    biz.DefaultAuthConfig(),
		Gateway: gateway.DefaultConfig(),
	}
}

// Load reads the configuration from the search paths and the environment,
// falling back to defaults for anything left unset.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("docdesk")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.docdesk")
	v.AddConfigPath("/etc/docdesk")

	return load(v)
}

// LoadFile reads the configuration from an explicit file path.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix("DOCDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		TagName:          "conf",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return Config{}, fmt.Errorf("failed to build config decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := mergo.Merge(&config, Default()); err != nil {
		return Config{}, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	return config, nil
}

// Module provides the loaded configuration and its sections.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Provide(
		func(c Config) server.Config { return c.Server },
		func(c Config) store.Config { return c.DB },
		func(c Config) log.Config { return c.Log },
		func(c Config) biz.AuthConfig { return c.Auth },
		func(c Config) gateway.Config { return c.Gateway },
	),
)
