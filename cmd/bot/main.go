package main

import (
	"fmt"
	"os"

	"prayday_bot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "prayday: %v\n", err)
		os.Exit(1)
	}
}
