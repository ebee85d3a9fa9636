package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/opcompile/internal/hcl"
	"github.com/specialistvlad/opcompile/internal/report"
	"github.com/specialistvlad/opcompile/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testPlan = `
scheduler {
	poll_interval  = "1ms"
	rollback_kinds = ["ub_fusion"]
}

backend "simulated" {
	workers    = 2
	fail_fused = ["Relu.relu1", "Mul.mul"]
	fail_nodes = ["Add.bad"]
	output_dir = "/kernels"
}

node "conv1" {
	type               = "Conv2D"
	attrs              = { _l1_hint = true }
	rollback_if_failed = ["_l1_hint"]
}

node "relu1" {
	type = "Relu"
}

node "pool" {
	type  = "Pool"
	attrs = { _ub_group = 1 }
}

node "mul" {
	type = "Mul"
}

node "bad" {
	type = "Add"
}

node "big" {
	type = "MatMul"
}

scope "conv_relu" {
	nodes       = ["conv1", "relu1"]
	fusion_kind = "l1_fusion"
}

scope "pool_mul" {
	nodes       = ["pool", "mul"]
	fusion_kind = "ub_fusion"
	fusion_attr = "_ub_group"
}

scope "matmul" {
	nodes  = ["big"]
	slices = 4
	thread = 1
}
`

// setupAppTest creates a new app instance for system testing.
func setupAppTest(t *testing.T, cfg *Config) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp := NewApp(logBuffer, cfg, hcl.NewLoader())
	t.Cleanup(func() {
		_ = testApp.Close()
		if os.Getenv("OPCOMPILE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	return testApp, logBuffer
}

func writeTestPlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApp_Run(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	reportPath := filepath.Join(t.TempDir(), "report.yaml")
	a, logs := setupAppTest(t, &Config{PlanPath: writeTestPlan(t, testPlan), ReportPath: reportPath})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	var terr *TerminalError
	require.True(t, errors.As(err, &terr), "expected a terminal error, got %v", err)
	assert.Equal(t, 1, terr.Nodes)
	assert.Contains(t, err.Error(), "Add.bad")

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var rep report.Report
	require.NoError(t, yaml.Unmarshal(raw, &rep))
	assert.False(t, rep.OK)
	assert.Equal(t, "simulated", rep.Backend)
	assert.NotEmpty(t, rep.RunID)
	require.Len(t, rep.Threads, 2)
	assert.Equal(t, 2, rep.Threads[0].Rounds)
	assert.Equal(t, []string{"pool_mul (ub_fusion)"}, rep.Threads[0].RolledBack)
	assert.Equal(t, 1, rep.Threads[1].Rounds)

	got := make(map[string]report.NodeReport, len(rep.Nodes))
	for _, n := range rep.Nodes {
		got[n.Node] = n
	}
	require.Len(t, got, 6)
	assert.Equal(t, "terminal", got["Add.bad"].Outcome)
	assert.Equal(t, "singleton_retry", got["Add.bad"].FailurePath)
	assert.Equal(t, "compiled", got["Conv2D.conv1"].Outcome)
	assert.Equal(t, "/kernels/Conv2D_conv1_retry.o", got["Conv2D.conv1"].BinaryPath)
	assert.Equal(t, "compiled", got["Relu.relu1"].Outcome)
	assert.Equal(t, "rolled_back", got["Pool.pool"].Outcome)
	assert.Equal(t, "rolled_back", got["Mul.mul"].Outcome)
	assert.Equal(t, "compiled", got["MatMul.big"].Outcome)
	assert.Equal(t, uint64(1), got["MatMul.big"].Thread)
	assert.Equal(t, []int{0, 3}, got["MatMul.big"].Slices)
	assert.Equal(t, "/kernels/matmul_s0.o", got["MatMul.big"].BinaryPath)

	assert.Contains(t, logs.String(), "Compilation finished.")
	snap := a.progress.snapshot()
	assert.Equal(t, int64(2), snap.ThreadsDone)
	assert.Equal(t, int64(6), snap.NodesDone)
	assert.Equal(t, int64(1), snap.Terminal)
}

func TestApp_RunClean(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	plan := `
		node "a" {
			type = "Add"
		}
		node "b" {
			type = "Add"
		}
	`
	reportOut := &testutil.SafeBuffer{}
	a, logs := setupAppTest(t, &Config{PlanPath: writeTestPlan(t, plan), ReportPath: "-", ReportOut: reportOut})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	var rep report.Report
	require.NoError(t, yaml.Unmarshal([]byte(reportOut.String()), &rep))
	assert.True(t, rep.OK)
	assert.Len(t, rep.Nodes, 2)
	assert.NotContains(t, reportOut.String(), "App.Run method started", "report stream carries no logs")
	assert.NotContains(t, logs.String(), "run_id: ", "log stream carries no report")
}

func TestApp_RunBadBackendOptions(t *testing.T) {
	t.Parallel()

	plan := `
		backend "simulated" {
			workers = 0
		}
	`
	a, _ := setupAppTest(t, &Config{PlanPath: writeTestPlan(t, plan)})

	err := a.Run(context.Background())

	require.ErrorContains(t, err, "workers must be at least 1")
}

func TestNewApp_Panics(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		plan    string
		cfg     Config
		wantErr string
	}{
		{name: "syntax error", plan: `node "a" {`, wantErr: "failed to load configuration"},
		{name: "unknown backend", plan: `backend "gpu" {}`, wantErr: `unknown backend type "gpu" (available: simulated, socketio)`},
		{name: "unknown backend override", cfg: Config{Backend: "tpu"}, wantErr: `unknown backend type "tpu"`},
		{name: "bad slice policy", plan: `scheduler { slice_policy = "odd" }`, wantErr: "invalid scheduler configuration"},
		{name: "bad reference", plan: `scope "s" { nodes = ["ghost"] }`, wantErr: "invalid compile plan"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := tc.cfg
			cfg.PlanPath = writeTestPlan(t, tc.plan)

			defer func() {
				r := recover()
				require.NotNil(t, r, "NewApp should panic")
				err, ok := r.(error)
				require.True(t, ok, "panic value should be an error, got %T", r)
				assert.Contains(t, err.Error(), tc.wantErr)
			}()
			NewApp(&testutil.SafeBuffer{}, &cfg, hcl.NewLoader())
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a, _ := setupAppTest(t, &Config{PlanPath: writeTestPlan(t, "")})
	a.progress.start("run-7", 3, 10)
	a.progress.threadFinished(4, 1)
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	// --- Act ---
	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	prog, err := http.Get(srv.URL + "/progress")
	require.NoError(t, err)
	defer prog.Body.Close()

	// --- Assert ---
	assert.Equal(t, http.StatusOK, health.StatusCode)
	var snap progressSnapshot
	require.NoError(t, json.NewDecoder(prog.Body).Decode(&snap))
	assert.Equal(t, progressSnapshot{RunID: "run-7", ThreadsTotal: 3, ThreadsDone: 1, NodesTotal: 10, NodesDone: 4, Terminal: 1}, snap)
}
