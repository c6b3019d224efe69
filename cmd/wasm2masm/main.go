// Command wasm2masm compiles a core WebAssembly module to Miden
// Assembly text (spec.md §6's CLI surface, "peripheral"): a thin cobra
// wrapper over internal/driver.Session, exit codes and environment
// variables otherwise out of scope.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
