// Command cvrisk evaluates SLE cardiovascular risk from the command line
// and manages the audit database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cvrisk: %v\n", err)
		os.Exit(1)
	}
}
