// Command signal-discovery prints the signals yearn would gather for each
// user from the data directory, grouped by kind.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/commands"
	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/core/signal"
	"github.com/colonyops/yearn/internal/integration/files"
)

func main() {
	// Load config with default paths
	configPath := commands.DefaultConfigPath()
	dataDir := commands.DefaultDataDir()

	cfg, err := config.Load(configPath, dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	users, err := files.Users(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving users: %v\n", err)
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	gatherer := signal.NewGatherer(log, cfg.Signals.Limit, files.SignalProviders(cfg.UsersDir(), log)...)

	fmt.Printf("Users directory: %s\n", cfg.UsersDir())
	fmt.Printf("Found %d user(s)\n", len(users))

	for _, user := range users {
		eng, err := cfg.LoadEngine(user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config for %s: %v\n", user, err)
			continue
		}

		sigs, err := gatherer.Gather(context.Background(), user, signal.KindsFor(eng.SourceEnabled))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error gathering signals for %s: %v\n", user, err)
			continue
		}

		fmt.Printf("\n=== %s (%d signals) ===\n", user, sigs.Len())
		for _, kind := range signal.AllKinds {
			items := sigs[kind]
			if len(items) == 0 {
				continue
			}
			fmt.Printf("  %s:\n", kind)
			for _, s := range items {
				fmt.Printf("    %s  %s\n", s.ID, s.Title)
				fmt.Printf("      Created: %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
			}
		}
	}
}
