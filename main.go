// The main package for the melonapi executable.
package main

import (
	"github.com/JakeFAU/melon-chart-api/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
