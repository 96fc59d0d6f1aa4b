package main

import (
	"fmt"
	"os"

	"github.com/noah-isme/backoffice-console/internal/cli"
)

// @title Backoffice Console
// @version 0.1.0
// @description Administrator console over the marketplace backend
// @BasePath /
// @schemes http

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	root := cli.NewRootCmd(version, buildDate, cli.DefaultLoader)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
