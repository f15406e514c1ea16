// The main package for the taskmon executable.
package main

import (
	"github.com/taskmon/taskmon/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
