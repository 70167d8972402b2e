// Command interpose-demo shows a module stack wrapped around a communication
// library. Run it with a stack file:
//
//	INTERPOSE_CONF=cmd/interpose-demo/stack.yaml go run ./cmd/interpose-demo a b c
//
// The init function below is the native trigger. Go runs it after the init
// functions of every imported package, so the tracer module is registered
// by then. commlib's Init fires the fallback trigger, which is a no-op here
// because the native trigger already ran.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/GoCodeAlone/interpose"
	"github.com/GoCodeAlone/interpose/internal/commlib"

	_ "github.com/GoCodeAlone/interpose/modules/tracer"
)

func init() {
	if err := interpose.Native(context.Background()); err != nil {
		slog.Error("Module stack initialization failed", "error", err)
	}
}

func main() {
	ctx := context.Background()
	err := run(ctx, commlib.New(), os.Stdout)
	if shutdownErr := interpose.Shutdown(ctx); shutdownErr != nil {
		slog.Error("Module stack shutdown failed", "error", shutdownErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, lib *commlib.Library, out io.Writer) error {
	if err := lib.Init(ctx); err != nil {
		return err
	}
	rank, err := lib.Rank()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "rank %d: application running\n", rank)
	return lib.Finalize()
}
