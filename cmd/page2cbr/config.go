package main

import (
	"os"

	"gopkg.in/yaml.v2"
)

// fileConfig holds defaults loaded from an optional YAML file, for options
// worth persisting across runs. Explicitly passed flags always win.
type fileConfig struct {
	UserAgent             string `yaml:"user_agent"`
	Timeout               int    `yaml:"timeout"`
	Referer               string `yaml:"referer"`
	Cookie                string `yaml:"cookie"`
	RarPath               string `yaml:"rar_path"`
	MaxConcurrentDownload int64  `yaml:"max_concurrent_download"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg fileConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
