package main

import (
	"os"

	"github.com/solatis/cdiscengine/cmd/cdiscengine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
