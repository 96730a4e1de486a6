package cmd

import (
	"errors"
	"os"

	"certmailer/internal/failure"
)

// Exit codes: 0=success, 1=general or some recipients failed, 2=usage or
// configuration, 3=input or output files.
const (
	ExitSuccess = 0
	ExitGeneral = 1
	ExitUsage   = 2
	ExitIO      = 3
)

var (
	// errRecipientsFailed is returned by run when the batch finished with failures.
	errRecipientsFailed = errors.New("some recipients failed")
	errUsage            = errors.New("usage error")
)

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, failure.ErrConfiguration) || errors.Is(err, errUsage) {
		return ExitUsage
	}
	if errors.Is(err, failure.ErrInputRead) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}
	return ExitGeneral
}
