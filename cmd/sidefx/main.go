package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/sidefx/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()

	// Commands report their own ExitErrors; anything else came from cobra
	// (bad flags, wrong argument count) and has not been printed yet.
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}

	os.Exit(cli.GetExitCode(err))
}
