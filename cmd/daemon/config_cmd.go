// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/playercount/internal/config"
	"github.com/ManuGH/playercount/internal/validate"
)

func runConfigCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  playercount config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  playercount config dump [--file|-f config.yaml] [--format=yaml|json]")
}

func configFlags(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	return fs, &file
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs, file := configFlags("playercount config validate", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_, path, err := loadConfig(*file)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n", displayPath(path))
		if ve, ok := validate.AsValidationError(err); ok {
			for _, e := range ve.Errors() {
				fmt.Fprintf(stderr, "  %s: %s\n", e.Field, e.Message)
			}
		} else {
			fmt.Fprintf(stderr, "  %v\n", err)
		}
		return 1
	}

	fmt.Fprintf(stdout, "%s is valid\n", displayPath(path))
	return 0
}

// effectiveConfig is the dump view of config.AppConfig.
type effectiveConfig struct {
	DataDir    string `yaml:"dataDir" json:"dataDir"`
	LogLevel   string `yaml:"logLevel" json:"logLevel"`
	ListenAddr string `yaml:"listenAddr" json:"listenAddr"`
	Catalog    struct {
		Path  string `yaml:"path" json:"path"`
		Watch bool   `yaml:"watch" json:"watch"`
	} `yaml:"catalog" json:"catalog"`
	Feed struct {
		URL     string `yaml:"url" json:"url"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"feed" json:"feed"`
	Aggregate struct {
		Mode string `yaml:"mode" json:"mode"`
	} `yaml:"aggregate" json:"aggregate"`
	Audit struct {
		Enabled     bool   `yaml:"enabled" json:"enabled"`
		Backend     string `yaml:"backend" json:"backend"`
		Path        string `yaml:"path" json:"path"`
		Timestamps  bool   `yaml:"timestamps" json:"timestamps"`
		SQLitePath  string `yaml:"sqlitePath" json:"sqlitePath"`
		RedisAddr   string `yaml:"redisAddr" json:"redisAddr"`
		RedisPrefix string `yaml:"redisPrefix" json:"redisPrefix"`
	} `yaml:"audit" json:"audit"`
	RateLimit struct {
		RPM int `yaml:"rpm" json:"rpm"`
	} `yaml:"rateLimit" json:"rateLimit"`
	Tracing struct {
		Enabled      bool    `yaml:"enabled" json:"enabled"`
		Exporter     string  `yaml:"exporter" json:"exporter"`
		Endpoint     string  `yaml:"endpoint" json:"endpoint"`
		SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
	} `yaml:"tracing" json:"tracing"`
}

func toEffective(cfg config.AppConfig) effectiveConfig {
	var e effectiveConfig
	e.DataDir = cfg.DataDir
	e.LogLevel = cfg.LogLevel
	e.ListenAddr = cfg.ListenAddr
	e.Catalog.Path = cfg.Catalog.Path
	e.Catalog.Watch = cfg.Catalog.Watch
	e.Feed.URL = maskURL(cfg.Feed.URL)
	e.Feed.Timeout = cfg.Feed.Timeout.String()
	e.Aggregate.Mode = cfg.Aggregate.Mode
	e.Audit.Enabled = cfg.Audit.Enabled
	e.Audit.Backend = cfg.Audit.Backend
	e.Audit.Path = cfg.Audit.Path
	e.Audit.Timestamps = cfg.Audit.Timestamps
	e.Audit.SQLitePath = cfg.Audit.SQLitePath
	e.Audit.RedisAddr = cfg.Audit.RedisAddr
	e.Audit.RedisPrefix = cfg.Audit.RedisPrefix
	e.RateLimit.RPM = cfg.RateLimit.RPM
	e.Tracing.Enabled = cfg.Tracing.Enabled
	e.Tracing.Exporter = cfg.Tracing.Exporter
	e.Tracing.Endpoint = cfg.Tracing.Endpoint
	e.Tracing.SamplingRate = cfg.Tracing.SamplingRate
	return e
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs, file := configFlags("playercount config dump", stderr)
	format := fs.String("format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, path, err := loadConfig(*file)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(path), err)
		return 1
	}

	eff := toEffective(cfg)
	switch *format {
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(eff); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		_ = enc.Close()
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(eff); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(stderr, "Error: unsupported format %q (yaml or json)\n", *format)
		return 2
	}
	return 0
}
