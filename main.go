package main

import (
	"fmt"
	"io"
	"os"

	"github.com/tphakala/sift-go/cmd"
	"github.com/tphakala/sift-go/internal/buildinfo"
	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/logger"
	"github.com/tphakala/sift-go/internal/privacy"
)

// buildDate and version are set at build time with -ldflags
var (
	buildDate string
	version   string
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := cmd.RootCommand(buildinfo.NewContext(version, buildDate))
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.Execute()

	if closeErr := logger.Global().Close(); closeErr != nil {
		fmt.Fprintf(stderr, "failed to close log file: %v\n", closeErr)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s (%s)\n", privacy.ScrubMessage(err.Error()), errors.CategoryOf(err))
		return 1
	}
	return 0
}
