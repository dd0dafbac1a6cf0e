// Command jsrender minifies javascript files and serves javascript assets
// the way the jsrender packages configure them.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
