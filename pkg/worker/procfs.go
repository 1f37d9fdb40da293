package worker

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/modoterra/agentlog/pkg/transport/uds"
)

// procRoot is where process information is read from.
var procRoot = "/proc"

// groupProcesses lists the live processes in process group pgid, which is
// the agent and everything it spawned. Processes that exit while the list
// is built are skipped.
func groupProcesses(pgid int) ([]uds.ProcessInfo, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", procRoot, err)
	}

	var procs []uds.ProcessInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		stat, err := os.ReadFile(fmt.Sprintf("%s/%d/stat", procRoot, pid))
		if err != nil {
			continue
		}
		ppid, pgrp, ok := parseStat(string(stat))
		if !ok || pgrp != pgid {
			continue
		}

		cmdline, err := os.ReadFile(fmt.Sprintf("%s/%d/cmdline", procRoot, pid))
		if err != nil {
			continue
		}
		cmd := strings.TrimSpace(strings.ReplaceAll(string(cmdline), "\x00", " "))
		if cmd == "" {
			continue // zombie or kernel thread
		}
		procs = append(procs, uds.ProcessInfo{PID: pid, PPID: ppid, Command: cmd})
	}
	slices.SortFunc(procs, func(a, b uds.ProcessInfo) int { return a.PID - b.PID })
	return procs, nil
}

// parseStat extracts the parent pid and process group from a
// /proc/<pid>/stat line. The command name may contain spaces and
// parentheses, so fields are counted from the last ')'.
func parseStat(stat string) (ppid, pgrp int, ok bool) {
	i := strings.LastIndexByte(stat, ')')
	if i < 0 {
		return 0, 0, false
	}
	fields := strings.Fields(stat[i+1:])
	if len(fields) < 3 {
		return 0, 0, false
	}
	ppid, err1 := strconv.Atoi(fields[1])
	pgrp, err2 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return ppid, pgrp, true
}
