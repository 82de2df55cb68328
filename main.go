package main

import (
	"os"

	"github.com/hmjahid/build-studio/cmd"
	"github.com/hmjahid/build-studio/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
