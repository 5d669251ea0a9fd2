// The main package for the imagefetch executable.
package main

import (
	"github.com/csk-sniffer/imagefetch/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
