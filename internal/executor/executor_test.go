//go:build darwin || linux

package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShell() Shell {
	return Shell{Path: "/bin/sh", Args: []string{"-c"}}
}

func TestExecuteSuccess(t *testing.T) {
	e := New(WithShell(testShell()))

	res := e.Execute(context.Background(), "echo hello", "", 5*time.Second)

	assert.True(t, res.Success)
	require.NotNil(t, res.ReturnCode)
	assert.Equal(t, 0, *res.ReturnCode)
	assert.Equal(t, "hello", res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.Equal(t, "echo hello", res.Command)
	assert.False(t, res.TimedOut)
}

func TestExecuteNonZeroExit(t *testing.T) {
	e := New(WithShell(testShell()))

	res := e.Execute(context.Background(), "exit 3", "", 5*time.Second)

	assert.False(t, res.Success)
	require.NotNil(t, res.ReturnCode)
	assert.Equal(t, 3, *res.ReturnCode)
	assert.False(t, res.TimedOut)
}

func TestExecuteSeparateStreams(t *testing.T) {
	e := New(WithShell(testShell()))

	res := e.Execute(context.Background(), "echo out; echo err 1>&2", "", 5*time.Second)

	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
}

func TestExecuteTimeout(t *testing.T) {
	e := New(WithShell(testShell()))

	start := time.Now()
	res := e.Execute(context.Background(), "sleep 10", "", 1*time.Second)
	elapsed := time.Since(start)

	assert.False(t, res.Success)
	assert.True(t, res.TimedOut)
	assert.Nil(t, res.ReturnCode)
	assert.Contains(t, res.Stderr, "timed out after")
	assert.Less(t, elapsed, 5*time.Second, "caller must be released promptly after termination")
}

func TestExecuteTimeoutPreservesPartialOutput(t *testing.T) {
	e := New(WithShell(testShell()))

	res := e.Execute(context.Background(), "echo partial; sleep 10", "", 1*time.Second)

	assert.True(t, res.TimedOut)
	assert.Contains(t, res.Stdout, "partial")
	assert.Contains(t, res.Stderr, "timed out after")
}

func TestExecuteTimeoutKillsChildren(t *testing.T) {
	e := New(WithShell(testShell()))

	// The shell forks a grandchild; group kill must reap it without
	// waiting on its inherited stdout pipe.
	start := time.Now()
	res := e.Execute(context.Background(), "sleep 10 & wait", "", 1*time.Second)

	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 6*time.Second)
}

func TestExecuteSpawnFailure(t *testing.T) {
	e := New(WithShell(Shell{Path: "/nonexistent/shell", Args: []string{"-c"}}))

	res := e.Execute(context.Background(), "echo hi", "", 5*time.Second)

	assert.False(t, res.Success)
	assert.Nil(t, res.ReturnCode)
	assert.NotEmpty(t, res.Stderr)
	assert.False(t, res.TimedOut)
}

func TestExecuteWorkingDirectory(t *testing.T) {
	e := New(WithShell(testShell()))
	dir := t.TempDir()

	res := e.Execute(context.Background(), "pwd", dir, 5*time.Second)

	assert.True(t, res.Success)
	assert.Equal(t, dir, res.WorkingDirectory)
	assert.Contains(t, res.Stdout, dir)
}

func TestExecuteNormalizesWorkingDirectory(t *testing.T) {
	e := New(WithShell(testShell()))
	dir := t.TempDir()

	res := e.Execute(context.Background(), "pwd", dir+"/sub/..", 5*time.Second)

	assert.True(t, res.Success)
	assert.Equal(t, dir, res.WorkingDirectory)
}

func TestExecuteBadWorkingDirectory(t *testing.T) {
	e := New(WithShell(testShell()))

	res := e.Execute(context.Background(), "pwd", "/nonexistent/dir/xyz", 5*time.Second)

	assert.False(t, res.Success)
	assert.Nil(t, res.ReturnCode)
	assert.NotEmpty(t, res.Stderr)
}

func TestExecuteOutputTruncation(t *testing.T) {
	e := New(WithShell(testShell()), WithMaxOutput(16))

	res := e.Execute(context.Background(), "printf 'aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa'", "", 5*time.Second)

	assert.True(t, res.Success)
	assert.True(t, res.Truncated)
	assert.LessOrEqual(t, len(res.Stdout), 16)
}

func TestExecuteOutputExactlyAtCap(t *testing.T) {
	e := New(WithShell(testShell()), WithMaxOutput(4))

	res := e.Execute(context.Background(), "printf 'abcd'", "", 5*time.Second)

	assert.True(t, res.Success)
	assert.Equal(t, "abcd", res.Stdout)
	assert.False(t, res.Truncated, "output that fits the cap exactly drops nothing")
}

func TestTimedOutRequiresKilledRun(t *testing.T) {
	killed := errors.New("signal: killed")

	assert.True(t, timedOut(killed, context.DeadlineExceeded))
	assert.False(t, timedOut(nil, context.DeadlineExceeded), "a completed run is not a timeout")
	assert.False(t, timedOut(killed, nil))
	assert.False(t, timedOut(nil, nil))
}

func TestDefaultShellFlags(t *testing.T) {
	sh := defaultShell()

	assert.Equal(t, "pwsh", sh.Path)
	assert.Contains(t, sh.Args, "-NoProfile")
	assert.Contains(t, sh.Args, "-NonInteractive")
	assert.Contains(t, sh.Args, "-ExecutionPolicy")
	assert.Contains(t, sh.Args, "Restricted")
}

func TestShellArgv(t *testing.T) {
	sh := Shell{Path: "powershell.exe", Args: []string{"-NoProfile", "-Command"}}

	assert.Equal(t,
		[]string{"powershell.exe", "-NoProfile", "-Command", "Get-Date"},
		sh.Argv("Get-Date"))
}

func TestLimitedWriter(t *testing.T) {
	e := New(WithShell(testShell()), WithMaxOutput(4))

	res := e.Execute(context.Background(), "echo abcdefgh", "", 5*time.Second)

	// The child must not fail on writes past the cap.
	assert.True(t, res.Success)
	assert.Equal(t, "abcd", res.Stdout)
	assert.True(t, res.Truncated)
}
