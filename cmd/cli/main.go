package main

import (
	"context"
	"fmt"
	"os"
)

/* hookctl administers the relay registry directly through the configured
 * store. It reads the same .env as the API.
 */
func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
