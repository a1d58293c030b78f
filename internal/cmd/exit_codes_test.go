package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/pflag"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/login"
	"github.com/itemsapp/itemctl/internal/validation"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, exitOK},
		{"help", pflag.ErrHelp, exitOK},
		{"unauthorized", &api.APIError{StatusCode: 401}, exitAuth},
		{"not found", &api.APIError{StatusCode: 404}, exitNotFound},
		{"forbidden", &api.APIError{StatusCode: 403}, exitForbidden},
		{"rate limited", &api.APIError{StatusCode: 429}, exitRateLimited},
		{"server", &api.APIError{StatusCode: 503}, exitServer},
		{"bad request", &api.APIError{StatusCode: 400}, exitUsage},
		{"validation", &api.APIError{StatusCode: 422}, exitUsage},
		{"wrapped login failure", &login.Error{Message: "Inactive user", Err: &api.APIError{StatusCode: 400}}, exitUsage},
		{"wrapped", fmt.Errorf("read me: %w", &api.APIError{StatusCode: 404}), exitNotFound},
		{"canceled", context.Canceled, exitNetwork},
		{"deadline", context.DeadlineExceeded, exitNetwork},
		{"usage", errors.New("unknown command \"nope\" for \"itemctl\""), exitUsage},
		{"usage shorthand", errors.New("unknown shorthand flag: 'z' in -z"), exitUsage},
		{"unknown endpoint", &api.UnknownEndpointError{Name: "x"}, exitUsage},
		{"missing path param", fmt.Errorf("items update: %w", &api.MissingPathParamError{Endpoint: "items_update", Param: "id"}), exitUsage},
		{"local title", validation.ValidateTitle(""), exitUsage},
		{"local email", fmt.Errorf("signup: %w", validation.ValidateEmail("not-an-email")), exitUsage},
		{"local base url", validation.ValidateBaseURL("API base URL", "ftp://x"), exitUsage},
		{"login without token", &login.Error{Message: login.FallbackMessage, Err: login.ErrNoAccessToken}, exitAuth},
		{"network", errors.New("dial tcp: connection refused"), exitNetwork},
		{"generic", errors.New("boom"), exitGeneric},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.code {
				t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.code)
			}
		})
	}
}

func TestExitCode_HandledErrorUsesStoredCode(t *testing.T) {
	err := &handledError{err: errors.New("wrapped"), exitCode: exitNotFound}
	if got := ExitCode(err); got != exitNotFound {
		t.Fatalf("ExitCode(handled) = %d, want %d", got, exitNotFound)
	}
	if !errors.Is(err, errAlreadyHandled) {
		t.Fatal("handledError should unwrap to errAlreadyHandled")
	}
}

func TestExitCode_HandledErrorWithoutCodeFallsBackToCause(t *testing.T) {
	err := &handledError{err: &api.APIError{StatusCode: 401}}
	if got := ExitCode(err); got != exitAuth {
		t.Fatalf("ExitCode = %d, want %d", got, exitAuth)
	}
}
