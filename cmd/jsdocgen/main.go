// Command jsdocgen generates an HTML reference page from the /** */
// annotations of a JavaScript or TypeScript project.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "jsdocgen: %v\n", err)
		stop()
		os.Exit(1)
	}
}
