// Package main is the entry point for the skill-swap admin CLI.
// This tool runs moderation commands directly against the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

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

	command, args := flag.Arg(0), flag.Args()[1:]
	switch command {
	case "version":
		fmt.Printf("Skill-swap Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	case "users", "requests", "message", "bootstrap":
	case "ban", "unban":
		if len(args) != 1 {
			fmt.Fprintf(os.Stderr, "Usage: skillswap-admin %s <user-id>\n", command)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err := run(command, args, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// The bootstrap command runs explicitly below.
	cfg.Admin.Bootstrap = false

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	ctx := context.Background()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	moderation := a.Moderation()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch command {
	case "users":
		users, err := moderation.ListAllUsers(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tNAME\tPUBLIC\tADMIN\tBANNED\tCREATED")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%t\t%s\n",
				u.ID, u.Name, u.IsPublic, u.IsAdmin, u.IsBanned, u.CreatedAt.Format(time.RFC3339))
		}

	case "requests":
		requests, err := moderation.ListAllRequests(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tFROM\tTO\tOFFERED\tWANTED\tSTATUS\tCREATED")
		for _, r := range requests {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.SenderName, r.ReceiverName, r.SkillOffered, r.SkillWanted, r.Status, r.CreatedAt.Format(time.RFC3339))
		}

	case "ban", "unban":
		banned := command == "ban"
		if err := moderation.SetBanned(ctx, args[0], banned); err != nil {
			return err
		}
		fmt.Fprintf(w, "User %s %sned\n", args[0], command)

	case "message":
		if len(args) > 0 {
			msg, err := moderation.SetBroadcastMessage(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Platform message updated at %s\n", msg.UpdatedAt.Format(time.RFC3339))
			return nil
		}
		msg, err := moderation.GetBroadcastMessage(ctx)
		if err != nil {
			return err
		}
		if msg.Message == "" {
			fmt.Fprintln(w, "(no platform message)")
			return nil
		}
		fmt.Fprintf(w, "%s\n", msg.Message)

	case "bootstrap":
		created, err := a.BootstrapAdmin(ctx)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(w, "Created administrator %q\n", cfg.Admin.Username)
		} else {
			fmt.Fprintf(w, "User %q already exists\n", cfg.Admin.Username)
		}
	}

	return nil
}

func printUsage() {
	fmt.Println(`Skill-swap Admin CLI

Usage:
  skillswap-admin [-config path] <command> [arguments]

Commands:
  users             List every user, including private and banned ones
  requests          List every swap request, newest first
  ban <user-id>     Hide a user from the directory
  unban <user-id>   Restore a banned user
  message [text]    Show the platform message, or replace it with text
  bootstrap         Create the configured administrator if missing
  version           Print version information
  help              Show this help message

Examples:
  skillswap-admin users
  skillswap-admin ban 3f0c9a7e-6d2b-4e8a-9f3e-2f1c0a5b7d11
  skillswap-admin message "Maintenance tonight at 22:00 UTC"`)
}
