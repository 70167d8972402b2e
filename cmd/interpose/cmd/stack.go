package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/interpose"
	"github.com/GoCodeAlone/interpose/argv"
	"github.com/GoCodeAlone/interpose/config"
	"github.com/GoCodeAlone/interpose/lifecycle"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a stack file",
		Long:  `Parse a YAML, TOML or HCL stack file and report the first problem found.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d modules OK\n", args[0], len(cfg.Modules))
			return nil
		},
	}
}

// NewPlanCommand creates the plan command
func NewPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan FILE",
		Short: "Show the order in which hooks will run",
		Long: `Build the stack described by FILE from the modules compiled into this
binary and print, for each lifecycle phase, the modules that take part in
dispatch order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(args[0])
			if err != nil {
				return err
			}
			stack, err := interpose.BuildStack(cfg, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for id := 0; id < stack.Len(); id++ {
				d, _ := stack.Descriptor(id)
				state := "on"
				if !d.Pcontrol {
					state = "off"
				}
				fmt.Fprintf(out, "module %d %s pcontrol=%s hooks=%s\n", id, d.Name, state, d.Hooks)
			}
			for _, phase := range lifecycle.Phases() {
				ids := stack.Participants(phase)
				names := make([]string, len(ids))
				for i, id := range ids {
					names[i] = fmt.Sprintf("%d:%s", id, stack.Name(id))
				}
				fmt.Fprintf(out, "%-21s %s\n", phase, strings.Join(names, " "))
			}
			return nil
		},
	}
}

// NewModulesCommand creates the modules command
func NewModulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the modules compiled into this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			names := interpose.RegisteredModules()
			if len(names) == 0 {
				fmt.Fprintln(out, "no modules registered")
				return nil
			}

			cfg := &config.Stack{}
			for _, name := range names {
				cfg.Modules = append(cfg.Modules, config.Module{Name: name})
			}
			stack, err := interpose.BuildStack(cfg, nil)
			if err != nil {
				return err
			}
			for id := 0; id < stack.Len(); id++ {
				hooks, _ := stack.Hooks(id)
				fmt.Fprintf(out, "%s %s\n", stack.Name(id), hooks)
			}
			return nil
		},
	}
}

// NewArgvCommand creates the argv command
func NewArgvCommand() *cobra.Command {
	var chunk int
	cmd := &cobra.Command{
		Use:   "argv",
		Short: "Print the argument vector recovered from the operating system",
		Long: `Read this process's command line the way the runtime does before
AppStartup and print one argument per line.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vector, err := recoverArgv(chunk)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "argc=%d\n", vector.Argc())
			for i, arg := range vector.Args() {
				fmt.Fprintf(out, "argv[%d]=%q\n", i, arg)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&chunk, "chunk", argv.DefaultChunkSize, "bytes to request per read")
	return cmd
}

// recoverArgv is replaced in tests.
var recoverArgv = argv.RecoverChunked
