// Command tableload infers the column types of delimited and Arrow files,
// compares them with database tables and loads them.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
