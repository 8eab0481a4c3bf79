package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"ideabot/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
