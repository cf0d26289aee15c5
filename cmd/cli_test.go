package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harunnryd/halo/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, runner.Version+"\n", stdout)
}

func TestSchemaIsJSON(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "schema")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, `"listen_timeout_ms"`)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halo.yaml")

	stdout, _, err := executeCLI(t, "", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+path)

	_, _, err = executeCLI(t, "", "config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	t.Setenv("HALO_SESSION_FAIRNESS", "5")
	stdout, _, err = executeCLI(t, "", "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "listen_timeout_ms: 8000")
	assert.Contains(t, stdout, "fairness: 5")
}

func TestConfigShowRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("budget:\n  listen_timeout_ms: 0\n"), 0o644))
	_, _, err := executeCLI(t, "", "config", "show", "--config", path)
	assert.ErrorContains(t, err, "budget.listen_timeout_ms")
}

func TestSimulateTimeoutAndRecovery(t *testing.T) {
	stdout, _, err := executeCLI(t, "",
		"simulate",
		"--step", "wake",
		"--step", "wait 8s",
		"--step", "complete",
		"--step", "reset",
		"--step", "state",
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	want := []string{
		"> wake_word_detected",
		"IDLE -> LISTENING (wake_word_detected)",
		"> wait 8s",
		"LISTENING -> ERROR (timeout) reason=Timeout",
		"> response_complete",
		"! invalid transition: response_complete not accepted in state ERROR",
		"> reset",
		"ERROR -> IDLE (reset)",
		"> state",
		"= IDLE timers=[]",
		"= IDLE timers=[] final rejected=1",
	}
	require.Len(t, lines, len(want), stdout)
	for i := range want {
		assert.Contains(t, lines[i], want[i])
	}
	assert.True(t, strings.HasPrefix(lines[3], "+8s"), lines[3])
}

func TestSimulateTimeoutStampedAtBudgetDeadline(t *testing.T) {
	stdout, stderr, err := executeCLI(t, "", "simulate", "-s", "wake", "-s", "wait 20s")
	require.NoError(t, err)

	var line string
	for _, l := range strings.Split(stdout, "\n") {
		if strings.Contains(l, "LISTENING -> ERROR (timeout)") {
			line = l
		}
	}
	require.NotEmpty(t, line, stdout)
	assert.True(t, strings.HasPrefix(line, "+8s"), line)
	assert.Contains(t, stderr, "listen_ms=8000")
}

func TestSimulateGoldenPathFromStdinWithConsoleHooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hooks:\n  provider: console\n  instrument: false\n"), 0o644))
	script := "# golden path\nwake\nsubmit\nwait 1s\nready it is sunny\ncomplete\n"

	stdout, _, err := executeCLI(t, script, "simulate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "mic on")
	assert.Contains(t, stdout, `say "it is sunny"`)
	assert.Contains(t, stdout, "+1s      RESPONDING -> IDLE (response_complete)")
	assert.Contains(t, stdout, "= IDLE timers=[] final rejected=0")
}

func TestSimulateWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HALO_OBSERVABILITY_ARTIFACTS_DIR", dir)
	_, _, err := executeCLI(t, "", "simulate", "-s", "wake", "-s", "neterr")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Len(t, names, 2, names)
	assert.True(t, strings.HasSuffix(names[0], ".jsonl") || strings.HasSuffix(names[1], ".jsonl"))
}

func TestSimulateRejectsBadScript(t *testing.T) {
	_, _, err := executeCLI(t, "wake\nfly\n", "simulate")
	assert.EqualError(t, err, `line 2: unknown step "fly"`)

	_, _, err = executeCLI(t, "", "simulate", "script.txt", "--step", "wake")
	assert.Error(t, err)
}

func TestRunDrainsOnEOF(t *testing.T) {
	stdout, _, err := executeCLI(t, "wake\nstate\nreset\nquit\n", "run", "--no-banner")
	require.NoError(t, err)
	assert.Contains(t, stdout, "IDLE -> LISTENING (wake_word_detected)")
	assert.Contains(t, stdout, "= LISTENING timers=[listen_timeout]")
	assert.Contains(t, stdout, "LISTENING -> IDLE (reset)")
}

func TestSimulateAppendsMetricsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "events.jsonl")
	t.Setenv("HALO_OBSERVABILITY_METRICS_JSONL", path)
	_, _, err := executeCLI(t, "", "simulate", "-s", "wake", "-s", "neterr")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.NotEmpty(t, lines)
	var names []string
	for _, l := range lines {
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &ev), l)
		names = append(names, ev["name"].(string))
	}
	assert.Contains(t, names, "turn_state_change")
	assert.Contains(t, names, "turn_phase_duration")
}

func TestSimulateCombinesHookProviders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`hooks:
  provider: log,console
  instrument: false
  settings:
    log:
      level: info
    console:
      preview_chars: 32
`), 0o644))

	stdout, stderr, err := executeCLI(t, "", "simulate", "--config", path,
		"-s", "wake", "-s", "submit", "-s", "ready it is sunny", "-s", "complete")
	require.NoError(t, err)
	assert.Contains(t, stdout, `say "it is sunny"`)
	assert.Contains(t, stderr, "msg=speech_start")
}

func TestOTelLogFormatRejectedWithoutProvider(t *testing.T) {
	t.Setenv("HALO_LOG_FORMAT", "otel")
	_, _, err := executeCLI(t, "", "simulate", "-s", "wake")
	assert.ErrorContains(t, err, "log_format: otel")

	stdout, _, err := executeCLI(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "log_format: otel")
}
