// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/ManuGH/playercount/internal/aggregate"
	xglog "github.com/ManuGH/playercount/internal/log"
)

// onceResult mirrors the /api/v1/players body.
type onceResult struct {
	TotalUsers int64              `json:"total_users"`
	Games      []aggregate.Ranked `json:"games"`
}

// runOnceCLI runs a single pass and prints the ranked table. Logs go to
// stderr so stdout stays machine-readable.
func runOnceCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("playercount once", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	format := fs.String("format", "table", "output format: table or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *format != "table" && *format != "json" {
		fmt.Fprintf(stderr, "Error: unsupported format %q (table or json)\n", *format)
		return 2
	}

	xglog.Configure(xglog.Config{Level: "warn", Output: stderr, Service: serviceName, Version: version})

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error (%s):\n  %v\n", displayPath(path), err)
		return 1
	}
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Output: stderr, Service: serviceName, Version: cfg.Version})

	ctx := context.Background()
	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = rt.close(ctx) }()

	out, err := rt.pipeline.Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if out.AuditErr != nil {
		fmt.Fprintf(stderr, "Warning: audit log not updated: %v\n", out.AuditErr)
	}

	games := out.Ranked
	if games == nil {
		games = []aggregate.Ranked{}
	}
	if *format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(onceResult{TotalUsers: out.TotalUsers, Games: games}); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(games))
	for _, g := range games {
		rows = append(rows, []string{g.Title, strconv.FormatInt(g.Count, 10)})
	}
	fmt.Fprintln(stdout, renderTable(
		[]string{"Game Title", "Current Players"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
		[]string{"Total Users", strconv.FormatInt(out.TotalUsers, 10)},
	))
	if n := len(out.Report.Appended); n > 0 {
		fmt.Fprintf(stderr, "%d new unmatched identifier(s) recorded\n", n)
	}
	return 0
}
