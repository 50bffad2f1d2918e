// Command logdna-ship reads log lines from stdin and ships them to a
// LogDNA/Mezmo ingest endpoint in batches.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
