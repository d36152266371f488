package commands

import (
	"KeePassLookup/internal/cli/service"
	"KeePassLookup/internal/config"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
)

// Коды завершения процесса.
const (
	ExitOK                 = 0
	ExitError              = 1
	ExitUsage              = 2
	ExitInvalidFormat      = 3
	ExitInvalidCredentials = 4
	ExitOpenFailed         = 5
	ExitGroupNotFound      = 6
	ExitEntryNotFound      = 7
)

// Dispatch is the single entry point to execute CLI commands.
// It prints help and usage messages and returns a process exit code.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	// If user passed global --help after flags parsing, show global usage
	for _, a := range os.Args[1:] {
		if a == "--help" || a == "-h" {
			fmt.Fprint(Out, FormatGlobalUsage())
			return ExitOK
		}
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}

	name := strings.ToLower(args[0])
	if name == "help" { // kplookup help [command]
		if len(args) == 1 {
			fmt.Fprint(Out, FormatGlobalUsage())
			return ExitOK
		}
		if c, ok := Get(args[1]); ok {
			fmt.Fprintf(Out, "Usage: %s\n", c.Usage())
			return ExitOK
		}
		fmt.Fprintf(Out, "Unknown command: %s\n\n", args[1])
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}

	c, ok := Get(name)
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
		fmt.Fprint(Out, FormatGlobalUsage())
		return ExitUsage
	}

	err := c.Run(ctx, cfg, args[1:])
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(ErrOut, "Usage: %s\n", c.Usage())
		return ExitUsage
	default:
		fmt.Fprintf(ErrOut, "%s error: %v\n", name, err)
		return ExitCode(err)
	}
}

// ExitCode сопоставляет ошибку команды коду завершения.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrUsage) {
		return ExitUsage
	}
	switch service.KindOf(err) {
	case service.KindInvalidArgument:
		return ExitUsage
	case service.KindInvalidFormat:
		return ExitInvalidFormat
	case service.KindInvalidCredentials:
		return ExitInvalidCredentials
	case service.KindOpenFailed:
		return ExitOpenFailed
	case service.KindGroupNotFound:
		return ExitGroupNotFound
	case service.KindEntryNotFound:
		return ExitEntryNotFound
	default:
		return ExitError
	}
}
