// Command genomics-shards partitions genomic regions into shards and runs
// reads or variants searches over them in parallel.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "genomics-shards: %v\n", err)
		os.Exit(1)
	}
}
