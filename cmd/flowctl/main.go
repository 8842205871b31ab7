// Command flowctl inspects, edits and stores flow editor documents.
package main

import (
	"fmt"
	"os"

	"github.com/example/flowide/cmd/flowctl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
