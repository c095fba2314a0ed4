package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/hitchain/packages/core/config"
	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
	hchttp "github.com/abdul-hamid-achik/hitchain/packages/http"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, runExitCode(nil))
	assert.Equal(t, ExitTestFailure, runExitCode(errors.New("assertion failed")))

	terr := &hchttp.TransportError{Method: "GET", URL: "http://x", Err: errors.New("refused")}
	assert.Equal(t, ExitNetworkError, runExitCode(terr))
	assert.Equal(t, ExitNetworkError, runExitCode(fmt.Errorf("step 0: %w", terr)))
}

func TestWorseExit(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{ExitSuccess, ExitSuccess, ExitSuccess},
		{ExitSuccess, ExitTestFailure, ExitTestFailure},
		{ExitTestFailure, ExitNetworkError, ExitNetworkError},
		{ExitNetworkError, ExitTestFailure, ExitNetworkError},
		{ExitNetworkError, ExitParseError, ExitParseError},
		{ExitParseError, ExitConfigError, ExitConfigError},
		{ExitConfigError, ExitParseError, ExitConfigError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, worseExit(tt.a, tt.b), "worseExit(%d, %d)", tt.a, tt.b)
	}
}

func TestRun_MapsExitErrors(t *testing.T) {
	newRoot := func(err error) (*cobra.Command, *bytes.Buffer) {
		var stderr bytes.Buffer
		root := &cobra.Command{
			Use:           "hitchain",
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE:          func(*cobra.Command, []string) error { return err },
		}
		root.SetArgs([]string{})
		root.SetErr(&stderr)
		return root, &stderr
	}

	root, stderr := newRoot(nil)
	assert.Equal(t, ExitSuccess, run(root))
	assert.Empty(t, stderr.String())

	root, stderr = newRoot(&ExitError{Code: ExitNetworkError, Err: errors.New("connection refused")})
	assert.Equal(t, ExitNetworkError, run(root))
	assert.Equal(t, "Error: connection refused\n", stderr.String())

	root, stderr = newRoot(&ExitError{Code: ExitTestFailure, Err: errors.New("shown already"), Reported: true})
	assert.Equal(t, ExitTestFailure, run(root))
	assert.Empty(t, stderr.String())

	root, stderr = newRoot(errors.New("unknown flag"))
	assert.Equal(t, ExitUsageError, run(root))
	assert.Contains(t, stderr.String(), "unknown flag")
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), "{}")
	writeFile(t, filepath.Join(dir, "nested", "b.yaml"), "name: b")
	writeFile(t, filepath.Join(dir, "nested", "c.yml"), "name: c")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "hitchain.yaml"), "timeout: 100")
	single := writeFile(t, filepath.Join(t.TempDir(), "single.json"), "{}")

	files, err := collectFiles([]string{dir, single})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "nested", "b.yaml"),
		filepath.Join(dir, "nested", "c.yml"),
		single,
	}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing.json")})
	assert.Error(t, err)
}

func TestIsConfigFile(t *testing.T) {
	assert.True(t, isConfigFile("suites/.hitchain.json"))
	assert.True(t, isConfigFile("hitchain.yaml"))
	assert.False(t, isConfigFile("suites/hitchain-smoke.yaml"))
}

func TestWatchDirs(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "a.json"), "{}")
	writeFile(t, filepath.Join(dir, "sub", "b.json"), "{}")

	dirs := watchDirs([]string{file, dir, filepath.Join(dir, "missing")})
	assert.Equal(t, []string{dir, filepath.Join(dir, "sub")}, dirs)
}

func suiteFor(url string, pattern string) string {
	return fmt.Sprintf(`{
  "name": "users",
  "config": [{
    "type": "request",
    "options": {"method": "GET", "url": %q, "json": true},
    "tests": [{"type": "regexp", "key": "name", "value": %q}]
  }, {
    "type": "request",
    "options": {"method": "GET", "url": "%s?name=${response[0].name}", "json": true},
    "tests": [{"type": "regexp", "key": "name", "value": "${response[0].name}"}]
  }]
}`, url, pattern, url)
}

func newTestSession(stdout *bytes.Buffer) *session {
	cfg := config.DefaultConfig()
	cfg.Silent = config.BoolPtr(true)
	cfg.NoColor = config.BoolPtr(true)
	return &session{cfg: cfg, stdout: stdout, requestID: "test-run"}
}

func TestSessionRunFiles(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name": "Ada"}`))
	}))
	defer server.Close()

	t.Run("passing suite", func(t *testing.T) {
		queries = nil
		file := writeFile(t, filepath.Join(t.TempDir(), "ok.json"), suiteFor(server.URL, "^Ada$"))

		var stdout bytes.Buffer
		out, err := newTestSession(&stdout).runFiles(context.Background(), []string{file}, "")
		require.NoError(t, err)

		assert.Equal(t, ExitSuccess, out.code)
		require.Len(t, out.results, 1)
		assert.Equal(t, 2, out.results[0].Stats.TestsSuccess)
		assert.Equal(t, []string{"", "name=Ada"}, queries)
		assert.Contains(t, stdout.String(), "TEST result: name=users tests_overall=2 tests_failed=0")

		summary := out.summary()
		assert.Equal(t, "test-run", summary.RequestID)
		assert.Equal(t, 1, summary.TotalSuites)
		assert.False(t, summary.Failed())
	})

	t.Run("assertion failure", func(t *testing.T) {
		file := writeFile(t, filepath.Join(t.TempDir(), "fail.json"), suiteFor(server.URL, "^Grace$"))

		var stdout bytes.Buffer
		out, err := newTestSession(&stdout).runFiles(context.Background(), []string{file}, "")
		require.NoError(t, err)

		assert.Equal(t, ExitTestFailure, out.code)
		require.Len(t, out.failed, 1)
		assert.Equal(t, "users", out.failed[0].Name)
		assert.Contains(t, stdout.String(), "tests_failed=1")
		assert.Contains(t, stdout.String(), "[test-run]")
	})

	t.Run("parse error", func(t *testing.T) {
		file := writeFile(t, filepath.Join(t.TempDir(), "bad.json"), `{"name": "bad", "config": [{"type": "teleport"}]}`)

		var stdout bytes.Buffer
		out, err := newTestSession(&stdout).runFiles(context.Background(), []string{file}, "")
		require.NoError(t, err)

		assert.Equal(t, ExitParseError, out.code)
		assert.Empty(t, out.results)
		assert.Contains(t, stdout.String(), "Error:")
	})

	t.Run("summary counts each suite once", func(t *testing.T) {
		dir := t.TempDir()
		good := writeFile(t, filepath.Join(dir, "1.json"), suiteFor(server.URL, "^Ada$"))
		bad := writeFile(t, filepath.Join(dir, "2.json"), suiteFor(server.URL, "^Grace$"))
		broken := writeFile(t, filepath.Join(dir, "3.json"), `{"name": "broken", "config": [{"type": "teleport"}]}`)

		var stdout bytes.Buffer
		out, err := newTestSession(&stdout).runFiles(context.Background(), []string{good, bad}, "")
		require.NoError(t, err)

		summary := out.summary()
		assert.Equal(t, 2, summary.TotalSuites)
		assert.Len(t, summary.FailedSuites, 1)
		assert.Equal(t, 3, summary.TestsRun)

		out, err = newTestSession(&stdout).runFiles(context.Background(), []string{good, bad, broken}, "")
		require.NoError(t, err)

		summary = out.summary()
		assert.Equal(t, 3, summary.TotalSuites)
		assert.Len(t, summary.FailedSuites, 2)
	})

	t.Run("bail stops after first failure", func(t *testing.T) {
		dir := t.TempDir()
		bad := writeFile(t, filepath.Join(dir, "1.json"), suiteFor(server.URL, "^Grace$"))
		good := writeFile(t, filepath.Join(dir, "2.json"), suiteFor(server.URL, "^Ada$"))

		var stdout bytes.Buffer
		s := newTestSession(&stdout)
		s.bail = true
		out, err := s.runFiles(context.Background(), []string{bad, good}, "")
		require.NoError(t, err)

		assert.Equal(t, ExitTestFailure, out.code)
		assert.Len(t, out.results, 1)
	})

	t.Run("junit output file", func(t *testing.T) {
		file := writeFile(t, filepath.Join(t.TempDir(), "ok.json"), suiteFor(server.URL, "^Ada$"))
		report := filepath.Join(t.TempDir(), "reports", "junit.xml")

		var stdout bytes.Buffer
		s := newTestSession(&stdout)
		s.cfg.Output = "junit"
		_, err := s.runFiles(context.Background(), []string{file}, report)
		require.NoError(t, err)

		data, err := os.ReadFile(report)
		require.NoError(t, err)
		assert.Contains(t, string(data), `<testsuites name="hitchain"`)
		assert.Empty(t, stdout.String())
	})
}

func TestSessionRunFiles_HTMLReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": "Ada"}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "1.json"), suiteFor(server.URL, "^Ada$"))
	bad := writeFile(t, filepath.Join(dir, "2.json"), suiteFor(server.URL, "^Grace$"))
	report := filepath.Join(t.TempDir(), "report.html")

	var stdout bytes.Buffer
	s := newTestSession(&stdout)
	s.cfg.Output = "html"
	out, err := s.runFiles(context.Background(), []string{good, bad}, report)
	require.NoError(t, err)
	assert.Equal(t, ExitTestFailure, out.code)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")
	assert.Contains(t, string(data), "request id test-run")
	assert.Contains(t, string(data), `<td class="failed">failed</td>`)
}

func TestSessionRunFiles_EnvFunction(t *testing.T) {
	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	envFile := writeFile(t, filepath.Join(t.TempDir(), ".env"), "HITCHAIN_TEST_API_TOKEN=from-env-file\n")
	lookup, err := config.EnvLookup(envFile, true)
	require.NoError(t, err)

	file := writeFile(t, filepath.Join(t.TempDir(), "auth.json"), fmt.Sprintf(`{
  "name": "auth",
  "config": [{
    "type": "request",
    "options": {"method": "GET", "url": %q, "headers": {"Authorization": "Bearer ${env(HITCHAIN_TEST_API_TOKEN)}"}},
    "tests": []
  }]
}`, server.URL))

	var stdout bytes.Buffer
	s := newTestSession(&stdout)
	s.funcs = envFunctions(lookup)
	out, err := s.runFiles(context.Background(), []string{file}, "")
	require.NoError(t, err)

	assert.Equal(t, ExitSuccess, out.code)
	assert.Equal(t, []string{"Bearer from-env-file"}, tokens)
}

func TestBuildNotifier(t *testing.T) {
	m, err := buildNotifier(config.DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, m)

	hits := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.SlackWebhook = server.URL + "/slack"
	cfg.TeamsWebhook = server.URL + "/teams"
	cfg.NotifyOn = "always"

	m, err = buildNotifier(cfg)
	require.NoError(t, err)
	require.NotNil(t, m)

	out := &outcome{requestID: "test-run"}
	require.NoError(t, m.Notify(out.summary()))
	assert.Equal(t, map[string]int{"/slack": 1, "/teams": 1}, hits)
}

func TestSessionRunFiles_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	file := writeFile(t, filepath.Join(t.TempDir(), "down.json"), suiteFor(url, "^Ada$"))

	var stdout bytes.Buffer
	out, err := newTestSession(&stdout).runFiles(context.Background(), []string{file}, "")
	require.NoError(t, err)

	assert.Equal(t, ExitNetworkError, out.code)
	require.Len(t, out.results, 1)
	assert.Equal(t, 1, out.results[0].Stats.TestsFail)
}

func TestSessionRunFiles_MetricsFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": "Ada"}`))
	}))
	defer server.Close()

	file := writeFile(t, filepath.Join(t.TempDir(), "ok.json"), suiteFor(server.URL, "^Ada$"))
	metricsFile := filepath.Join(t.TempDir(), "out", "metrics.json")
	promFile := filepath.Join(t.TempDir(), "hitchain.prom")

	var stdout bytes.Buffer
	s := newTestSession(&stdout)
	s.cfg.MetricsFile = metricsFile

	collector, err := s.startMetrics(promFile)
	require.NoError(t, err)
	require.NotNil(t, collector)

	_, err = s.runFiles(context.Background(), []string{file}, "")
	require.NoError(t, err)
	require.NoError(t, collector.Flush())
	require.NoError(t, collector.Close())

	assert.EqualValues(t, 2, collector.GetAggregate().TotalAttempts)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_attempts"`)

	prom, err := os.ReadFile(promFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "hitchain_attempts_total")
}

func TestStartMetrics_Disabled(t *testing.T) {
	s := newTestSession(&bytes.Buffer{})
	collector, err := s.startMetrics("")
	require.NoError(t, err)
	assert.Nil(t, collector)
	assert.Nil(t, s.collector)
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)

	forceInit = false
	require.NoError(t, initCommand(cmd, []string{dir}))
	assert.Contains(t, stdout.String(), "hitchain project initialized!")

	s, err := suite.Load(filepath.Join(dir, "example.yaml"))
	require.NoError(t, err)
	assert.Len(t, s.Steps, 3)

	cfg, err := config.LoadConfig(filepath.Join(dir, "hitchain.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30000, cfg.Timeout)

	err = initCommand(cmd, []string{dir})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitConfigError, exitErr.Code)

	forceInit = true
	defer func() { forceInit = false }()
	assert.NoError(t, initCommand(cmd, []string{dir}))
}

func TestValidateAndListCommands(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.json"), suiteFor("http://api.local/users", "^Ada$"))

	var stdout, stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	require.NoError(t, validateCommand(cmd, []string{dir}))
	assert.Contains(t, stdout.String(), "(2 steps)")

	stdout.Reset()
	require.NoError(t, listCommand(cmd, []string{dir}))
	assert.Contains(t, stdout.String(), "users (")
	assert.Contains(t, stdout.String(), "  0. GET http://api.local/users [1 tests]")

	writeFile(t, filepath.Join(dir, "bad.json"), `{"name": "bad", "config": [{"type": "delay"}]}`)
	err := validateCommand(cmd, []string{dir})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitParseError, exitErr.Code)
	assert.True(t, exitErr.Reported)
	assert.Contains(t, stderr.String(), "bad.json")
}
