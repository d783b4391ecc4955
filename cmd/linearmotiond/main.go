package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arlyon/linear-motion/pkg/config"
	"github.com/arlyon/linear-motion/pkg/logging"
)

// main is a deterministic boundary, in the teacher's cmd style: argument
// handling is the only thing done here, and it is intentionally minimal,
// since flag/env config parsing and transport client construction are
// named out-of-scope external collaborators (spec.md §1). Everything
// downstream of argument parsing is an exported function taking already-
// constructed values (Run, Status), so it is testable without a real CLI
// invocation.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: linearmotiond <run|status> <store-path>")
		os.Exit(2)
	}

	storePath := "linear-motion.db"
	if len(os.Args) >= 3 {
		storePath = os.Args[2]
	}

	switch os.Args[1] {
	case "status":
		if err := Status(storePath, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "run":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.WithDefaults(config.Config{})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Transport clients are the out-of-scope external collaborator
		// (spec.md §1): this minimal binary has none to offer, so `run`
		// here only demonstrates the wiring shape. An embedding program
		// links against Run directly with real upstream.Client/-
		// downstream.Client implementations.
		log := logging.New()
		log.Error("no transport clients configured; embed cmd/linearmotiond.Run with concrete upstream/downstream clients")
		_ = ctx
		_ = cfg
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		os.Exit(2)
	}
}
