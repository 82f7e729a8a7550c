package link

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readWithin(t *testing.T, l Link, d time.Duration) (string, bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if line, ok := l.ReadLine(); ok {
			return line, true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return "", false
}

func TestSpawn_EchoConversation(t *testing.T) {
	l, err := Spawn(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", `while read line; do echo "got $line"; done`},
	})
	require.NoError(t, err)
	defer l.Close(time.Second)

	require.NoError(t, l.WriteLine("xboard"))
	line, ok := readWithin(t, l, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "got xboard", line)
	assert.True(t, l.Alive())
	assert.Equal(t, -1, l.ExitCode())
}

func TestSpawn_StripsCarriageReturn(t *testing.T) {
	l, err := Spawn(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", `printf 'pong 1\r\n'; exec sleep 5`},
	})
	require.NoError(t, err)
	defer l.Close(10 * time.Millisecond)

	line, ok := readWithin(t, l, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "pong 1", line)
}

func TestSpawn_ExitIsObservedAfterOutput(t *testing.T) {
	l, err := Spawn(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", `echo resign; exit 3`},
	})
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for l.Alive() && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.False(t, l.Alive())
	assert.Equal(t, 3, l.ExitCode())

	// Output produced before exit is still readable.
	line, ok := l.ReadLine()
	require.True(t, ok)
	assert.Equal(t, "resign", line)

	assert.ErrorIs(t, l.WriteLine("new"), ErrClosed)
	assert.NoError(t, l.Close(time.Millisecond))
}

func TestClose_KillsUnresponsiveProcess(t *testing.T) {
	l, err := Spawn(context.Background(), Spec{
		Command: "sh",
		Args:    []string{"-c", `exec sleep 30`},
	})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, l.Close(20*time.Millisecond))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, l.Alive())
}

func TestSpawn_MissingExecutable(t *testing.T) {
	_, err := Spawn(context.Background(), Spec{Command: "/definitely/not/here/engine"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotExecutable)

	_, err = Spawn(context.Background(), Spec{})
	assert.ErrorIs(t, err, ErrNotExecutable)
}

func TestSpawn_NotExecutableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644))

	_, err := Spawn(context.Background(), Spec{Command: path})
	assert.ErrorIs(t, err, ErrNotExecutable)
}
