// Package main is the entry point for the skill-swap database migration tool.
// It applies the embedded schema migrations of the configured driver.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/app"
	"github.com/prn-tf/skillswap/internal/config"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	switch command {
	case "version":
		fmt.Printf("Skill-swap Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	case "up", "status":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := run(command, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx := context.Background()
	db, _, err := app.OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if command == "up" {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	version, err := db.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Driver: %s\n", cfg.Database.Driver)
	fmt.Printf("Schema version: %d\n", version)
	return nil
}

func printUsage() {
	fmt.Println(`Skill-swap Migration Tool

Usage:
  skillswap-migrate [-config path] <command>

Commands:
  up          Apply all pending migrations
  status      Show the current schema version
  version     Print version information
  help        Show this help message

Configuration is read from the config file and SKILLSWAP_* environment
variables, for example SKILLSWAP_DATABASE_DRIVER=postgres.`)
}
