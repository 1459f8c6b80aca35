// Copyright (C) 2024 Kirk Diggler
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"strings"

	"github.com/spf13/viper"
)

// Config layers flags over the TACTICAL_ env prefix over .tactical.yaml/json
// over defaults (§10 Ambient Stack: config = cobra + viper).
type Config struct {
	ScenarioPath string `mapstructure:"scenario"`
	ContentDir   string `mapstructure:"content_dir"`
	HazardCatalogPath string `mapstructure:"hazard_catalog"`
	OutPath      string `mapstructure:"out"`
	Forecast     bool   `mapstructure:"forecast"`
	Pretty       bool   `mapstructure:"pretty"`
	LogLevel     string `mapstructure:"log_level"`
}

func loadConfig(v *viper.Viper) (Config, error) {
	v.SetConfigName(".tactical")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("TACTICAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("forecast", false)
	v.SetDefault("pretty", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
