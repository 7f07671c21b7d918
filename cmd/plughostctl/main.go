package main

import (
	"os"

	"github.com/platinummonkey/plughost/pkg/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
