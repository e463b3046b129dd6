package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadWithOverlay loads the env-based Config (Load) and then, if configPath
// is non-empty or a config.yaml is found on the default search paths,
// overlays it with viper-sourced values. Operators who don't want a file
// get exactly the env-only behavior of Load.
func LoadWithOverlay(configPath string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		if configPath != "" {
			return nil, err
		}
		return cfg, nil
	}

	overlay := *cfg
	if err := v.Unmarshal(&overlay); err != nil {
		return nil, err
	}
	applyDurationOverrides(v, &overlay)
	return &overlay, nil
}

// applyDurationOverrides re-parses duration fields viper's default decode
// hook would otherwise leave as raw strings/ints, mirroring Load's
// getDuration semantics for the file-sourced path.
func applyDurationOverrides(v *viper.Viper, cfg *Config) {
	if v.IsSet("scheduler.idlewaittime") {
		if d, err := time.ParseDuration(v.GetString("scheduler.idlewaittime")); err == nil {
			cfg.Scheduler.IdleWaitTime = d
		}
	}
	if v.IsSet("scheduler.dbfailureretryinterval") {
		if d, err := time.ParseDuration(v.GetString("scheduler.dbfailureretryinterval")); err == nil {
			cfg.Scheduler.DBFailureRetryInterval = d
		}
	}
}
