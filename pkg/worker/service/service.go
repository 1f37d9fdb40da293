// Package service manages the systemd user unit that keeps the worker
// running in the background.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
)

// UnitName is the name of the installed user unit.
const UnitName = "agentlog.service"

// UnitContents returns the systemd unit file contents for running the
// worker loop with the given configuration.
func UnitContents(binaryPath, configPath, workDir string) string {
	return fmt.Sprintf(`[Unit]
Description=agentlog worker for %s
Documentation=https://github.com/modoterra/agentlog

[Service]
Type=simple
WorkingDirectory=%s
ExecStart=%s run --loop --config %s
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`, filepath.Base(workDir), quote(workDir), quote(binaryPath), quote(configPath))
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t\"'\\") {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
	}
	return s
}

// UnitPath returns the path to the systemd user unit file.
func UnitPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(configDir, "systemd", "user", UnitName), nil
}

// WriteUnit writes the unit file for configPath and returns its location.
func WriteUnit(configPath string) (string, error) {
	binaryPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot resolve agentlog binary: %w", err)
	}
	configPath, err = filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("cannot resolve config path: %w", err)
	}
	if _, err := os.Stat(configPath); err != nil {
		return "", fmt.Errorf("config: %w", err)
	}

	unitPath, err := UnitPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
		return "", fmt.Errorf("cannot create directory: %w", err)
	}

	contents := UnitContents(binaryPath, configPath, filepath.Dir(configPath))
	if err := os.WriteFile(unitPath, []byte(contents), 0o644); err != nil {
		return "", fmt.Errorf("cannot write unit file: %w", err)
	}
	return unitPath, nil
}

// Install writes the unit file, reloads systemd, and enables+starts the service.
func Install(configPath string) error {
	if _, err := WriteUnit(configPath); err != nil {
		return err
	}
	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", UnitName)
}

// Uninstall stops+disables the service, removes the unit file, and reloads systemd.
func Uninstall() error {
	// Best-effort stop and disable; ignore errors if not running.
	_ = systemctl("stop", UnitName)
	_ = systemctl("disable", UnitName)

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}
	if err := os.Remove(unitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot remove unit file: %w", err)
	}
	return systemctl("daemon-reload")
}

// Report describes the installed unit.
type Report struct {
	UnitPath    string
	Installed   bool
	LoadState   string
	ActiveState string
	SubState    string
}

func (r Report) String() string {
	if !r.Installed {
		return "systemd user service: not installed (" + r.UnitPath + ")"
	}
	state := r.ActiveState
	if r.SubState != "" && r.SubState != r.ActiveState {
		state += " (" + r.SubState + ")"
	}
	return "systemd user service: " + state + "\nunit: " + r.UnitPath
}

// Status reports whether the unit is installed and, when the user bus is
// reachable, its current state. States are "unknown" without a bus.
func Status(ctx context.Context) (Report, error) {
	unitPath, err := UnitPath()
	if err != nil {
		return Report{}, err
	}
	r := Report{UnitPath: unitPath, LoadState: "unknown", ActiveState: "unknown"}
	if _, err := os.Stat(unitPath); err != nil {
		return r, nil
	}
	r.Installed = true

	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return r, nil
	}
	defer conn.Close()

	units, err := conn.ListUnitsByNamesContext(ctx, []string{UnitName})
	if err != nil || len(units) == 0 {
		return r, nil
	}
	r.LoadState = units[0].LoadState
	r.ActiveState = units[0].ActiveState
	r.SubState = units[0].SubState
	return r, nil
}

func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl --user %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
