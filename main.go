package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/arcanehq/arcane/cmd"
	"github.com/arcanehq/arcane/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.ArcaneCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		code, show := cmd.ExitCode(err)
		if show {
			fmt.Fprintln(os.Stderr, ui.Failed(err.Error()))
		}
		os.Exit(code)
	}
}
