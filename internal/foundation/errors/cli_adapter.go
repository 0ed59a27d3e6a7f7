package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Exit codes reported by the mdsite CLI.
const (
	ExitOK           = 0
	ExitGeneral      = 1
	ExitUsage        = 2
	ExitMissingInput = 3
	ExitBrokenRefs   = 4
	ExitConfig       = 7
	ExitEventStore   = 8
	ExitInternal     = 10
	ExitOutput       = 11
	ExitRuntime      = 12
)

var exitCodes = map[ErrorCategory]int{
	CategoryValidation:  ExitUsage,
	CategoryNotFound:    ExitMissingInput,
	CategoryUnsupported: ExitMissingInput,
	CategoryCycle:       ExitBrokenRefs,
	CategoryLayout:      ExitBrokenRefs,
	CategoryConfig:      ExitConfig,
	CategoryEventStore:  ExitEventStore,
	CategoryInternal:    ExitInternal,
	CategoryFileSystem:  ExitOutput,
	CategoryRuntime:     ExitRuntime,
}

// CLIErrorAdapter turns command errors into a stderr message, a log record and
// a process exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	stderr  io.Writer
}

// NewCLIErrorAdapter creates a new CLI error adapter writing to os.Stderr.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, stderr: os.Stderr}
}

// WithOutput redirects user-facing messages.
func (a *CLIErrorAdapter) WithOutput(w io.Writer) *CLIErrorAdapter {
	a.stderr = w
	return a
}

// ExitCodeFor returns the exit code for err. Unclassified errors map to 1.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	classified, ok := AsClassified(err)
	if !ok {
		return ExitGeneral
	}
	if code, ok := exitCodes[classified.Category()]; ok {
		return code
	}
	return ExitGeneral
}

// FormatError renders err for a terminal. Verbose mode prints the full chain.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return classified.Error()
	}

	switch classified.Category() {
	case CategoryInternal:
		return "Internal error occurred (use -v for details)"
	case CategoryConfig, CategoryValidation:
		if path := classified.Path(); path != "" {
			return classified.Message() + ": " + path
		}
		return classified.Message()
	default:
		return fmt.Sprintf("%s: %s", classified.Category(), classified.Message())
	}
}

// Report logs and prints err, returning the exit code the process should use.
func (a *CLIErrorAdapter) Report(err error) int {
	if err == nil {
		return ExitOK
	}
	a.log(err)
	_, _ = fmt.Fprintln(a.stderr, a.FormatError(err))
	return a.ExitCodeFor(err)
}

// HandleError reports err and exits. It returns normally when err is nil.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	os.Exit(a.Report(err))
}

func (a *CLIErrorAdapter) log(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	// Non-fatal classified errors are already summarized on stderr.
	if !a.verbose && classified.Severity() != SeverityFatal {
		return
	}

	attrs := []slog.Attr{slog.String("category", string(classified.Category()))}
	if classified.CanRetry() {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	a.logger.LogAttrs(context.Background(), levelFor(classified.Severity()), classified.Message(), attrs...)
}

func levelFor(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
