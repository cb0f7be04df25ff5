// Package main is the petgalaxy command: the classroom API server plus
// maintenance subcommands for migrations, seeding and resets.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Set with -ldflags "-X main.version=...".
	version = "dev"

	envFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "petgalaxy",
		Short:         "Classroom pet tracker",
		Long:          "petgalaxy runs the classroom API where students grow virtual pets with the points they earn.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newResetCmd(),
		newHashPasscodeCmd(),
	)
	return root
}
