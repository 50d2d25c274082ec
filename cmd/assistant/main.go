// Command assistant runs the chat core over stdio and offers a few terminal
// helpers around the same settings and session stores.
package main

import (
	"errors"
	"fmt"
	"os"
)

// errReported makes the command fail without printing anything further.
var errReported = errors.New("already reported")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
