package main

import (
	"os"

	"github.com/safih1/policedispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
