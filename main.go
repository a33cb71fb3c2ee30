// The main package for the iliassync executable.
package main

import (
	"iliassync/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
