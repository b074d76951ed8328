package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeffrom/envee/cmd/envee/commands"
	"github.com/jeffrom/envee/stdio"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(rawArgs []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = stdio.SetContext(ctx, &stdio.StdIO{})
	return commands.ExecArgs(ctx, rawArgs[1:])
}
