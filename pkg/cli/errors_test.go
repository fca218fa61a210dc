package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"mercator-hq/dyndict/pkg/config"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("registry.capacity", "must be >= 0")
	if got := err.Error(); got != "config error in registry.capacity: must be >= 0" {
		t.Errorf("Error() = %q", got)
	}

	noField := &ConfigError{Message: "no configuration file"}
	if got := noField.Error(); got != "config error: no configuration file" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrapConfigError(t *testing.T) {
	verr := config.ValidationError{Errors: []config.FieldError{
		{Field: "resources[0].path", Message: "is required"},
		{Field: "server.listen_address", Message: "invalid"},
	}}
	wrapped := fmt.Errorf("failed to load: %w", verr)

	ce := WrapConfigError("dyndict.yaml", wrapped)
	if ce.Field != "resources[0].path" || ce.Message != "is required (and 1 more)" {
		t.Errorf("ConfigError = %+v", ce)
	}
	if !errors.As(ce, &verr) {
		t.Error("ConfigError does not unwrap to the validation error")
	}

	plain := WrapConfigError("dyndict.yaml", errors.New("file not found"))
	if plain.Field != "dyndict.yaml" || !strings.Contains(plain.Error(), "file not found") {
		t.Errorf("ConfigError = %+v", plain)
	}
}

func TestCommandError(t *testing.T) {
	inner := errors.New("address in use")
	err := NewCommandError("run", inner)

	if got := err.Error(); got != "command run failed: address in use" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is(err, inner) = false")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"command", NewCommandError("get", errors.New("x")), ExitFailure},
		{"config", NewConfigError("a", "b"), ExitConfig},
		{"wrapped config", NewCommandError("run", NewConfigError("a", "b")), ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
