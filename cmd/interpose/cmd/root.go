// Package cmd implements the interpose command line tool.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// OsExit allows tests to replace os.Exit.
var OsExit = os.Exit

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion prints version information
func PrintVersion() string {
	return fmt.Sprintf("interpose v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// NewRootCommand creates the root command for the interpose tool
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interpose",
		Short: "Interpose - Tools for working with module stacks",
		Long: `Interpose inspects the module stacks that wrap a communication library.
It validates stack files, shows the order in which lifecycle hooks will run,
and lists the modules compiled into this binary.`,
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(PrintVersion() + "\n")

	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewPlanCommand())
	cmd.AddCommand(NewModulesCommand())
	cmd.AddCommand(NewArgvCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), PrintVersion())
		},
	}
}
