// Package main provides the entry point for the perfshop CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/perfshop/cmd/perfshop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
