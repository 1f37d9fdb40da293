package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUnitContents(t *testing.T) {
	got := UnitContents("/usr/local/bin/agentlog", "/srv/app/agentlog.yaml", "/srv/app")

	if !strings.Contains(got, "ExecStart=/usr/local/bin/agentlog run --loop --config /srv/app/agentlog.yaml") {
		t.Errorf("unit file missing ExecStart:\n%s", got)
	}
	if !strings.Contains(got, "WorkingDirectory=/srv/app") {
		t.Error("unit file missing WorkingDirectory")
	}
	if !strings.Contains(got, "Description=agentlog worker for app") {
		t.Error("unit file missing project description")
	}
	if !strings.Contains(got, "Restart=on-failure") {
		t.Error("unit file missing Restart=on-failure")
	}
	if !strings.Contains(got, "[Install]") {
		t.Error("unit file missing [Install] section")
	}
}

func TestUnitContentsQuotesSpaces(t *testing.T) {
	got := UnitContents("/opt/agent log/agentlog", "/home/me/my app/agentlog.yaml", "/home/me/my app")
	if !strings.Contains(got, `ExecStart="/opt/agent log/agentlog" run --loop --config "/home/me/my app/agentlog.yaml"`) {
		t.Errorf("paths with spaces not quoted:\n%s", got)
	}
}

func TestUnitPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/agentlog-xdg")
	path, err := UnitPath()
	if err != nil {
		t.Fatalf("UnitPath() error: %v", err)
	}
	if path != "/tmp/agentlog-xdg/systemd/user/agentlog.service" {
		t.Errorf("UnitPath() = %q", path)
	}
}

func TestWriteUnit(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	project := t.TempDir()
	cfg := filepath.Join(project, "agentlog.yaml")
	os.WriteFile(cfg, []byte("version: 1\n"), 0o644)

	unitPath, err := WriteUnit(cfg)
	if err != nil {
		t.Fatalf("WriteUnit: %v", err)
	}
	if unitPath != filepath.Join(xdg, "systemd", "user", UnitName) {
		t.Errorf("unit path: %s", unitPath)
	}
	data, err := os.ReadFile(unitPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "--config "+cfg) {
		t.Errorf("unit does not reference config:\n%s", data)
	}
}

func TestWriteUnitMissingConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := WriteUnit(filepath.Join(t.TempDir(), "agentlog.yaml")); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestStatusNotInstalled(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	r, err := Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Installed {
		t.Error("expected not installed")
	}
	if !strings.Contains(r.String(), "not installed") {
		t.Errorf("String() = %q", r.String())
	}
}

func TestStatusWithoutBus(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path="+filepath.Join(t.TempDir(), "no-bus"))
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	unit := filepath.Join(xdg, "systemd", "user", UnitName)
	os.MkdirAll(filepath.Dir(unit), 0o755)
	os.WriteFile(unit, []byte(UnitContents("/bin/agentlog", "/a/agentlog.yaml", "/a")), 0o644)

	r, err := Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Installed {
		t.Error("expected installed")
	}
	if r.ActiveState != "unknown" {
		t.Errorf("ActiveState = %q, want unknown", r.ActiveState)
	}
	if !strings.Contains(r.String(), "systemd user service: unknown") {
		t.Errorf("String() = %q", r.String())
	}
}
