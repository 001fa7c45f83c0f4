// ./main.go
package main

import (
	"github.com/okazakidev/adjutant/cmd"
)

// main is the entry point for the adjutant CLI.
func main() {
	cmd.Execute()
}
