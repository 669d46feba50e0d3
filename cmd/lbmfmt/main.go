package main

import (
	"fmt"
	"io"
	"os"

	"github.com/lispbm/lbmfmt/cli"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=...".
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cli.Run(args, cli.Options{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		BuildInfo: cli.BuildInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		},
	})
	if err != nil {
		fmt.Fprintf(stderr, "lbmfmt: %v\n", err)
		return 1
	}
	return 0
}
