package main

import (
	"fmt"
	"os"

	"github.com/galapoto/todiscope-v3-sub003/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
