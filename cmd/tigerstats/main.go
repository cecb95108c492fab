// Command tigerstats queries the Tiger Trade statistics service and prints
// JSON to stdout. Failures are printed as {"error": "..."}.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is not an error
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		// flag and argument errors; command failures are already rendered
		writeError(os.Stdout, err)
	}
}
