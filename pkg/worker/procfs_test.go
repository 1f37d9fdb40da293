package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStat(t *testing.T) {
	ppid, pgrp, ok := parseStat("4242 (go test (x)) S 4000 4100 4100 0 -1 4194560")
	require.True(t, ok)
	assert.Equal(t, 4000, ppid)
	assert.Equal(t, 4100, pgrp)

	_, _, ok = parseStat("garbage")
	assert.False(t, ok)
	_, _, ok = parseStat("1 (init) S")
	assert.False(t, ok)
}

func fakeProc(t *testing.T, root string, pid, ppid, pgrp int, cmdline string) {
	t.Helper()
	dir := filepath.Join(root, fmt.Sprint(pid))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stat := fmt.Sprintf("%d (x) S %d %d %d 0", pid, ppid, pgrp, pgrp)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(stat), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o644))
}

func TestGroupProcesses(t *testing.T) {
	root := t.TempDir()
	old := procRoot
	procRoot = root
	t.Cleanup(func() { procRoot = old })

	fakeProc(t, root, 300, 200, 200, "go\x00test\x00./...\x00")
	fakeProc(t, root, 200, 1, 200, "claude\x00-p\x00")
	fakeProc(t, root, 250, 1, 250, "vim\x00")
	fakeProc(t, root, 301, 200, 200, "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "self"), 0o755))

	procs, err := groupProcesses(200)
	require.NoError(t, err)
	require.Len(t, procs, 2)
	assert.Equal(t, 200, procs[0].PID)
	assert.Equal(t, "claude -p", procs[0].Command)
	assert.Equal(t, 300, procs[1].PID)
	assert.Equal(t, 200, procs[1].PPID)
	assert.Equal(t, "go test ./...", procs[1].Command)
}

func TestGroupProcessesMissingRoot(t *testing.T) {
	old := procRoot
	procRoot = filepath.Join(t.TempDir(), "nope")
	t.Cleanup(func() { procRoot = old })

	_, err := groupProcesses(1)
	assert.Error(t, err)
}
