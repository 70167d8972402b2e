package main

import (
	"fmt"
	"os"

	"github.com/GoCodeAlone/interpose/cmd/interpose/cmd"

	_ "github.com/GoCodeAlone/interpose/modules/tracer"
)

func main() {
	rootCmd := cmd.NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		cmd.OsExit(1)
	}
}
