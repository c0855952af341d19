package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrAuth          = errors.New("authentication error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// failureKinds is checked in order; the first marker found in the chain wins.
var failureKinds = []struct {
	marker error
	kind   string
}{
	{ErrConfiguration, "configuration"},
	{ErrAuth, "auth"},
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrExternalTool, "external_tool"},
	{ErrTransient, "transient"},
}

// FailureKind maps an error to the short label recorded in the run ledger.
// Errors carrying no marker are reported as "failed".
func FailureKind(err error) string {
	if err == nil {
		return ""
	}
	for _, fk := range failureKinds {
		if errors.Is(err, fk.marker) {
			return fk.kind
		}
	}
	return "failed"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
