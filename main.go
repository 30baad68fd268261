// The main package for the iconsync executable.
package main

import (
	"github.com/JakeFAU/iconsync/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
