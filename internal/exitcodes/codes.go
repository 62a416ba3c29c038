package exitcodes

import (
	"fmt"
	"os"
)

// Standard exit codes for lsp-resolver
const (
	// Success indicates successful command completion
	Success = 0

	// GeneralError indicates a general/unknown error
	GeneralError = 1

	// InvalidArgs indicates invalid command-line arguments or flags
	InvalidArgs = 2

	// PreconditionFailed indicates a precondition was not met
	// (e.g., nothing installed yet, working directory missing)
	PreconditionFailed = 3

	// NetworkError indicates network/connectivity failure
	// (e.g., GitHub API unreachable, download timeout, DNS failure)
	NetworkError = 4

	// InstallError indicates an install/extraction failure
	// (e.g., archive corrupt, cannot write to working directory)
	InstallError = 5

	// ValidationError indicates validation failure
	// (e.g., manifest digest mismatch, unsupported platform)
	ValidationError = 6
)

// Exit terminates the program with the given code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError prints error message to stderr and exits with the given code
func ExitWithError(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

// ExitWithErrorf prints formatted error message to stderr and exits
func ExitWithErrorf(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}

// CodeForError returns the appropriate exit code for an error.
// Unwraps ErrorWithCode for explicit codes, otherwise returns GeneralError.
// Use explicit error constructors (NetworkErr, InstallErr, etc.) for specific codes.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}

	// Check if error has explicit code
	if ec, ok := err.(*ErrorWithCode); ok {
		return ec.Code
	}

	// Default to general error - callers should use explicit error constructors
	return GeneralError
}
