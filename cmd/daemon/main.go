// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	xglog "github.com/ManuGH/playercount/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info and the query from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	parsedURL.RawQuery = ""
	return parsedURL.String()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return runServeCLI(args, stderr)
	case "once":
		return runOnceCLI(args, stdout, stderr)
	case "config":
		return runConfigCLI(args, stdout, stderr)
	case "healthcheck":
		return runHealthcheckCLI(args, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	case "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", cmd)
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  playercount [serve] [--config config.yaml]")
	fmt.Fprintln(w, "  playercount once [--config config.yaml] [--format table|json]")
	fmt.Fprintln(w, "  playercount config validate|dump [--file|-f config.yaml]")
	fmt.Fprintln(w, "  playercount healthcheck [--mode ready|live] [--addr host:port]")
	fmt.Fprintln(w, "  playercount version")
}

func runServeCLI(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("playercount serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Safe defaults until the config is loaded.
	xglog.Configure(xglog.Config{Level: "info", Service: serviceName, Version: version})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, *configPath); err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "daemon.failed").
			Msg("daemon failed")
		return 1
	}
	logger.Info().Msg("server exiting")
	return 0
}
