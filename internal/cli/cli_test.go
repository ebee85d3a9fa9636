package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/specialistvlad/opcompile/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		args       []string
		want       *app.Config
		shouldExit bool
		wantCode   int
	}{
		{
			name: "positional path with defaults",
			args: []string{"plans/"},
			want: &app.Config{PlanPath: "plans/", LogFormat: "text", LogLevel: "info"},
		},
		{
			name: "all flags",
			args: []string{"-p", "a.hcl", "-log-format", "JSON", "-log-level", "debug", "-log-file", "run.log",
				"-report", "-", "-backend", "socketio", "-suppress-retry", "-healthcheck-port", "8080"},
			want: &app.Config{PlanPath: "a.hcl", LogFormat: "json", LogLevel: "debug", LogFile: "run.log",
				ReportPath: "-", Backend: "socketio", SuppressRetry: true, HealthcheckPort: 8080},
		},
		{name: "plan flag wins", args: []string{"-plan", "x.hcl", "-p", "y.hcl"}, want: &app.Config{PlanPath: "x.hcl", LogFormat: "text", LogLevel: "info"}},
		{name: "help", args: []string{"-h"}, shouldExit: true},
		{name: "no path", args: nil, shouldExit: true},
		{name: "bad format", args: []string{"-log-format", "xml", "p"}, wantCode: ExitUsage},
		{name: "bad level", args: []string{"-log-level", "loud", "p"}, wantCode: ExitUsage},
		{name: "negative port", args: []string{"-healthcheck-port", "-1", "p"}, wantCode: ExitUsage},
		{name: "unknown flag", args: []string{"-workers", "3"}, wantCode: ExitUsage},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer

			cfg, shouldExit, err := Parse(tc.args, &out)

			if tc.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tc.wantCode, ExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.shouldExit, shouldExit)
			if tc.shouldExit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			assert.Equal(t, tc.want, cfg)
		})
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitUsage, ExitCode(&ExitError{Code: ExitUsage}))
	terminal := fmt.Errorf("run: %w", &app.TerminalError{Nodes: 2, Err: errors.New("x")})
	assert.Equal(t, ExitTerminal, ExitCode(terminal))
}
