// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Command groundsim runs a single ground-traffic simulation from a
// layout file and an optional parameters file, writing the result as
// JSON to stdout and, with -dump-gz, also to a gzip-compressed file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/flightops/groundsim/pkg/log"
	"github.com/flightops/groundsim/pkg/sim"
)

func main() {
	layoutPath := flag.String("layout", "", "path to a layout JSON file (required)")
	paramsPath := flag.String("params", "", "path to a parameters JSON file (optional; defaults are used if omitted)")
	logLevel := flag.String("log-level", "info", "debug, info, warn, or error")
	logDir := flag.String("log-dir", "", "directory for the rotating log file (default groundsim-logs)")
	dumpGz := flag.String("dump-gz", "", "if set, also write the gzip-compressed result to this path")
	flag.Parse()

	if *layoutPath == "" {
		fmt.Fprintln(os.Stderr, "groundsim: -layout is required")
		os.Exit(2)
	}

	logger := log.New(*logLevel, *logDir)

	layoutJSON, err := os.ReadFile(*layoutPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "groundsim: reading layout: %v\n", err)
		os.Exit(1)
	}

	var paramsJSON []byte
	if *paramsPath != "" {
		paramsJSON, err = os.ReadFile(*paramsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "groundsim: reading parameters: %v\n", err)
			os.Exit(1)
		}
	}

	result, err := sim.RunFromJSON(layoutJSON, paramsJSON, logger)
	if err != nil {
		logger.Errorf("run failed: %v", err)
		fmt.Fprintf(os.Stderr, "groundsim: %v\n", err)
		os.Exit(1)
	}

	if _, err := os.Stdout.Write(result); err != nil {
		fmt.Fprintf(os.Stderr, "groundsim: writing stdout: %v\n", err)
		os.Exit(1)
	}
	fmt.Println()

	if *dumpGz != "" {
		if err := writeGzip(*dumpGz, result); err != nil {
			fmt.Fprintf(os.Stderr, "groundsim: writing gzip dump: %v\n", err)
			os.Exit(1)
		}
	}
}

func writeGzip(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}
