// Package config loads the application configuration by layering a yaml
// file, MINDSPROUT_* environment variables, and command-line flags, in
// ascending priority.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "MINDSPROUT_"

// Config holds everything the application needs outside the domain itself.
type Config struct {
	// DBPath is the sqlite database file.
	DBPath string `koanf:"db" validate:"required"`
	// Listen is the address the web UI binds to.
	Listen string `koanf:"listen" validate:"required,hostname_port"`
	// ReposDir is where git card sources are checked out.
	ReposDir string `koanf:"repos" validate:"required"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DBPath:   "mindsprout.db",
		Listen:   "127.0.0.1:7151",
		ReposDir: "repos",
	}
}

// Flags defines the command-line flag set shared by all subcommands.
func Flags() *pflag.FlagSet {
	defaults := Defaults()
	flags := pflag.NewFlagSet("mindsprout", pflag.ContinueOnError)
	flags.String("config", "", "Path to a yaml config file")
	flags.String("db", defaults.DBPath, "Path to the sqlite database file")
	flags.String("listen", defaults.Listen, "Address for the web UI to listen on")
	flags.String("repos", defaults.ReposDir, "Directory for git card source checkouts")
	return flags
}

// Load merges file, environment and flag configuration and validates the
// result. A config file is optional unless explicitly named on the flags.
func Load(flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if _, err := os.Stat("mindsprout.yml"); err == nil {
		if err := k.Load(file.Provider("mindsprout.yml"), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load mindsprout.yml: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment config: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load flag config: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
