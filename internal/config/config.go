// Package config handles loading and parsing application configuration.
// It supports two sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every value can also be overridden by the environment variable named
// in its env tag.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Credential backends selectable with credentials.backend.
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Config is the root configuration structure.
//
// AdminUsername lives here, not in the credential store: the protected
// administrator is whoever the operator configures.
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-default:"dev" validate:"oneof=dev staging prod"`

	// DatasetPath is the CSV file of student records.
	DatasetPath string `yaml:"dataset_path" env:"DATASET_PATH" env-required:"true"`

	// AdminUsername is the account that can manage users and can never
	// be removed.
	AdminUsername string `yaml:"admin_username" env:"ADMIN_USERNAME" env-required:"true"`

	Credentials Credentials `yaml:"credentials"`
	HTTPServer  `yaml:"http_server"`
}

// Credentials selects where the user registry is persisted.
type Credentials struct {
	Backend string `yaml:"backend" env:"CREDENTIALS_BACKEND" env-default:"yaml" validate:"oneof=yaml sqlite"`
	Path    string `yaml:"path" env:"CREDENTIALS_PATH" env-required:"true"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:8082"`
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// MustLoad resolves the config path from CONFIG_PATH or --config, then
// loads it. Like every Must function it exits the process on failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err.Error())
	}
	return cfg
}
