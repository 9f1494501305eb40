package main

import (
	"os"

	"github.com/safar/farmmarket/cmd/farmmarket/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
