package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"certmailer/cmd"
)

func main() {
	// maxprocs.Set only fails on an invalid GOMAXPROCS; the runtime default applies then.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(cmd.ExitCode(err))
}
