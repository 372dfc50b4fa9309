package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/teranos/tagtical/cmd/tagtical/commands"
	"github.com/teranos/tagtical/errors"
	"github.com/teranos/tagtical/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer logger.Cleanup()

	if err := commands.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		return 1
	}
	return 0
}
