package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for error classification. Only ErrSetup and ErrTerminal
// end a session; everything else is recovered locally so a degraded stream
// beats no stream.
var (
	// ErrSetup tags failures where a display, audio daemon, or renderer did
	// not become ready within its timeout.
	ErrSetup = errors.New("setup failure")
	// ErrPublish tags a recoverable transcoder exit (first failure; the
	// publisher retries once with silent audio).
	ErrPublish = errors.New("publish failure")
	// ErrTerminal tags the second transcoder failure for a session.
	ErrTerminal = errors.New("terminal failure")
	// ErrExternalTool tags unexpected output or exit codes from a child tool.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration tags unusable configuration detected at runtime.
	ErrConfiguration = errors.New("configuration error")
	// ErrTimeout tags bounded waits that exhausted their budget.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must end the session.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSetup) || errors.Is(err, ErrTerminal)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
