package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseYAML(t *testing.T) {
	yaml := `
version: 1
root: /srv/app
output:
  format: json
  journal: true
limits:
  bash_command: 80
worker:
  command: claude
  prompt: "keep going"
  prompt_files: ["${root}/TASKS.md"]
  dir: "${root}/web"
  env:
    PROJECT_HOME: "${root}"
  restart: on-failure
  interval: 1m30s
`
	c, err := Parse([]byte(yaml), FileYAML)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if c.Output.Format != "json" || !c.Output.Journal {
		t.Errorf("output: got %+v", c.Output)
	}
	if c.Output.Color != "never" {
		t.Errorf("color default: got %q", c.Output.Color)
	}
	if c.Limits.BashCommand != 80 || c.Limits.DoneMessage != 200 {
		t.Errorf("limits: got %+v", c.Limits)
	}
	if c.Worker.Interval != 90*time.Second {
		t.Errorf("interval: got %s", c.Worker.Interval)
	}
	if c.Worker.Dir != "/srv/app/web" {
		t.Errorf("dir interpolation: got %q", c.Worker.Dir)
	}
	if len(c.Worker.PromptFiles) != 1 || c.Worker.PromptFiles[0] != "/srv/app/TASKS.md" {
		t.Errorf("prompt_files interpolation: got %v", c.Worker.PromptFiles)
	}
	if c.Worker.Env["PROJECT_HOME"] != "/srv/app" {
		t.Errorf("env interpolation: got %v", c.Worker.Env)
	}
	if c.Worker.LogDir != "/srv/app/.ai/logs" {
		t.Errorf("log_dir default interpolation: got %q", c.Worker.LogDir)
	}
	if len(c.Worker.Args) != 4 {
		t.Errorf("args default: got %v", c.Worker.Args)
	}
	if errs := Validate(c); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestParseJSONC(t *testing.T) {
	data := `{
  // project file
  "version": 1,
  "root": "/repo",
  "worker": {
    "restart": "never", /* one shot */
    "interval": "5s",
  },
}`
	c, err := Parse([]byte(data), FileJSON)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if c.Worker.Restart != "never" {
		t.Errorf("restart: got %q", c.Worker.Restart)
	}
	if c.Worker.Interval != 5*time.Second {
		t.Errorf("interval: got %s", c.Worker.Interval)
	}
	if c.Worker.Dir != "/repo" {
		t.Errorf("dir: got %q", c.Worker.Dir)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse([]byte("version: [1"), FileYAML); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Parse([]byte(`{"worker": {"interval": "soon"}}`), FileJSON); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestLoadRelativeRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentlog.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nroot: sub\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "sub")
	if c.Root != want {
		t.Errorf("root: got %q, want %q", c.Root, want)
	}
	if c.Worker.LogDir != filepath.Join(want, ".ai/logs") {
		t.Errorf("log_dir: got %q", c.Worker.LogDir)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"agentlog.yaml", "agentlog.json"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, name)
			if err := Save(Default(), path); err != nil {
				t.Fatal(err)
			}
			c, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			if c.Worker.Interval != 30*time.Second {
				t.Errorf("interval: got %s", c.Worker.Interval)
			}
			if c.Worker.Dir != dir {
				t.Errorf("dir: got %q, want %q", c.Worker.Dir, dir)
			}
			if errs := Validate(c); len(errs) != 0 {
				t.Errorf("validation errors: %v", errs)
			}
		})
	}
}

func TestSaveKeepsPlaceholders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentlog.yaml")
	if err := Save(Default(), path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "${root}/.ai/logs") {
		t.Errorf("expected placeholder in saved file:\n%s", data)
	}
	if !strings.Contains(string(data), "interval: 30s") {
		t.Errorf("expected readable interval in saved file:\n%s", data)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	if _, err := Find(dir); err == nil {
		t.Fatal("expected error in empty dir")
	}

	os.WriteFile(filepath.Join(dir, "agentlog.json"), []byte("{}"), 0o644)
	os.WriteFile(filepath.Join(dir, "agentlog.yml"), []byte(""), 0o644)

	got, err := Find(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "agentlog.yml" {
		t.Errorf("find: got %s, want agentlog.yml first", got)
	}
}

func TestResolveDefaults(t *testing.T) {
	dir := t.TempDir()
	c, path, err := Resolve("", dir)
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("path: got %q", path)
	}
	if c.Worker.Dir != dir {
		t.Errorf("dir: got %q", c.Worker.Dir)
	}
}

func TestResolveExplicitMissing(t *testing.T) {
	if _, _, err := Resolve(filepath.Join(t.TempDir(), "nope.yaml"), "."); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestValidateVersionMustBe1(t *testing.T) {
	c := Default()
	c.Version = 2
	assertHasError(t, Validate(c), "version must be 1")
}

func TestValidateOutput(t *testing.T) {
	c := Default()
	c.Output.Format = "xml"
	c.Output.Color = "rainbow"
	errs := Validate(c)
	assertHasError(t, errs, "output.format")
	assertHasError(t, errs, "output.color")
}

func TestValidateLogLevel(t *testing.T) {
	c := Default()
	c.Log.Level = "loud"
	assertHasError(t, Validate(c), "log.level")
}

func TestValidateLimits(t *testing.T) {
	c := Default()
	c.Limits = Limits{}
	errs := Validate(c)
	assertHasError(t, errs, "limits.bash_command")
	assertHasError(t, errs, "limits.done_message")
}

func TestValidateWorker(t *testing.T) {
	c := Default()
	c.Worker.Command = " "
	c.Worker.Restart = "bogus"
	c.Worker.Interval = -time.Second
	errs := Validate(c)
	assertHasError(t, errs, "worker.command is required")
	assertHasError(t, errs, "worker.restart must be")
	assertHasError(t, errs, "worker.interval")
}

func TestValidateRestartPolicies(t *testing.T) {
	for _, policy := range []string{"always", "on-failure", "never"} {
		c := Default()
		c.Worker.Restart = policy
		if errs := Validate(c); len(errs) != 0 {
			t.Errorf("restart=%q: unexpected errors: %v", policy, errs)
		}
	}
}

func assertHasError(t *testing.T, errs []error, substr string) {
	t.Helper()
	for _, e := range errs {
		if strings.Contains(e.Error(), substr) {
			return
		}
	}
	t.Errorf("expected error containing %q, got: %v", substr, errs)
}
