package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sukria/koan-sub000/internal/cli"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Optional .env for KOAN_HOME / KOAN_EXECUTOR overrides.
	_ = godotenv.Load()

	cli.SetVersion(Version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
