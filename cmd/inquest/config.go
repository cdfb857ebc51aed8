package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/kestrelab/inquest/internal/config"
	"github.com/spf13/viper"
)

// loadConfig reads the config file if present, validates it against the
// schema, and unmarshals it over the defaults. A missing file is not an
// error: the defaults apply.
func loadConfig(workDir string) (config.Config, error) {
	cfg := config.Default()

	path := viper.GetString("config")
	if path == "" {
		path = filepath.Join(".inquest", "config.json")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := config.ValidateSettings(viper.AllSettings()); err != nil {
		return config.Config{}, err
	}
	// max_time is a duration string in the file ("5m", "90s").
	hook := viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())
	if err := viper.Unmarshal(&cfg, hook); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Constraints.MaxGoals <= 0 {
		return config.Config{}, fmt.Errorf("constraints.max_goals must be > 0")
	}
	if cfg.Constraints.MaxConcurrent <= 0 {
		return config.Config{}, fmt.Errorf("constraints.max_concurrent must be > 0")
	}
	return cfg, nil
}
