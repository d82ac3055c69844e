package tools

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/execbox/execbox-mcp/internal/audit"
	"github.com/execbox/execbox-mcp/internal/executor"
	"github.com/execbox/execbox-mcp/internal/policy"
)

// fakeRunner records calls instead of spawning processes.
type fakeRunner struct {
	calls       int
	lastCommand string
	lastTimeout time.Duration
	result      executor.ExecutionResult
}

func (f *fakeRunner) Execute(_ context.Context, command, workingDirectory string, timeout time.Duration) executor.ExecutionResult {
	f.calls++
	f.lastCommand = command
	f.lastTimeout = timeout
	res := f.result
	res.Command = command
	res.WorkingDirectory = workingDirectory
	return res
}

// memStore captures audit events in memory.
type memStore struct {
	events []audit.Event
}

func (m *memStore) Record(e audit.Event) error        { m.events = append(m.events, e); return nil }
func (m *memStore) Recent(int) ([]audit.Event, error) { return m.events, nil }
func (m *memStore) Close() error                      { return nil }

func testSurface(t *testing.T) (*Surface, *fakeRunner, *memStore) {
	t.Helper()
	p, err := policy.Parse([]byte(`{
		"allowed_commands": ["Get-Date", "Get-ChildItem"],
		"allowed_directories": ["/srv/public*"],
		"blocked_patterns": ["[;&|`+"`"+`]", "Remove-Item"],
		"max_command_length": 100,
		"timeout_seconds": 7
	}`), "test.json")
	require.NoError(t, err)

	runner := &fakeRunner{result: executor.ExecutionResult{Success: true, Stdout: "ok"}}
	store := &memStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(p, runner, store, logger), runner, store
}

func TestExecutePowerShellAllowed(t *testing.T) {
	s, runner, store := testSurface(t)

	res := s.ExecutePowerShell(context.Background(), "Get-Date", "")

	assert.True(t, res.Success)
	assert.Equal(t, "ok", res.Stdout)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 7*time.Second, runner.lastTimeout, "executor must get the policy timeout")

	require.Len(t, store.events, 1)
	assert.Equal(t, "execute_powershell", store.events[0].Tool)
	assert.True(t, store.events[0].Allowed)
}

func TestExecutePowerShellDeniedShortCircuits(t *testing.T) {
	s, runner, store := testSurface(t)

	res := s.ExecutePowerShell(context.Background(), "Get-ChildItem; Remove-Item /x", "")

	assert.False(t, res.Success)
	assert.Nil(t, res.ReturnCode)
	assert.Contains(t, res.Stderr, "blocked pattern")
	assert.Equal(t, 0, runner.calls, "denied command must not reach the executor")

	require.Len(t, store.events, 1)
	assert.False(t, store.events[0].Allowed)
}

func TestExecutePowerShellDeniedDirectory(t *testing.T) {
	s, runner, _ := testSurface(t)

	res := s.ExecutePowerShell(context.Background(), "Get-Date", "/etc")

	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "not within an allowed directory")
	assert.Equal(t, 0, runner.calls)
}

func TestExecutePowerShellFailureAudited(t *testing.T) {
	s, runner, store := testSurface(t)
	runner.result = executor.ExecutionResult{Success: false, Stderr: "boom"}

	s.ExecutePowerShell(context.Background(), "Get-Date", "")

	require.Len(t, store.events, 1)
	assert.True(t, store.events[0].Allowed)
	assert.False(t, store.events[0].Success)
	assert.Equal(t, "boom", store.events[0].Detail)
}

func TestValidateCommandNeverExecutes(t *testing.T) {
	s, runner, store := testSurface(t)

	allowed := s.ValidateCommand("Get-Date")
	denied := s.ValidateCommand("Remove-Item /x")

	assert.True(t, allowed.IsAllowed)
	assert.False(t, denied.IsAllowed)
	assert.Equal(t, 0, runner.calls)
	assert.Len(t, store.events, 2)
}

func TestListAllowedCommandsSnapshot(t *testing.T) {
	s, _, _ := testSurface(t)

	commands := s.ListAllowedCommands()
	assert.Equal(t, []string{"Get-Date", "Get-ChildItem"}, commands)

	// Mutating the snapshot must not affect later reads.
	commands[0] = "Hacked"
	assert.Equal(t, []string{"Get-Date", "Get-ChildItem"}, s.ListAllowedCommands())
}

func TestListAllowedDirectories(t *testing.T) {
	s, _, _ := testSurface(t)
	assert.Equal(t, []string{"/srv/public*"}, s.ListAllowedDirectories())
}

func TestGetSecurityConfigCounts(t *testing.T) {
	s, _, _ := testSurface(t)

	summary := s.GetSecurityConfig()
	assert.Equal(t, 2, summary.AllowedCommandsCount)
	assert.Equal(t, 1, summary.AllowedDirectoriesCount)
	assert.Equal(t, 2, summary.BlockedPatternsCount)
	assert.Equal(t, 100, summary.MaxCommandLength)
	assert.Equal(t, 7, summary.TimeoutSeconds)
}

func TestNilStoreDefaultsToNop(t *testing.T) {
	p, err := policy.Parse([]byte(`{
		"allowed_commands": ["Get-Date"],
		"allowed_directories": [],
		"blocked_patterns": [],
		"max_command_length": 100,
		"timeout_seconds": 5
	}`), "test.json")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(p, &fakeRunner{}, nil, logger)

	assert.NotPanics(t, func() { s.ValidateCommand("Get-Date") })
}
