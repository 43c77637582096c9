// Command wgtrace inspects and replays command recording traces.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fhn666/wgpu/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
