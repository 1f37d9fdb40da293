package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileFormat is the syntax of a configuration file.
type FileFormat int

const (
	FileYAML FileFormat = iota
	FileJSON
)

// FileNames lists the names Find looks for, in order.
var FileNames = []string{"agentlog.yaml", "agentlog.yml", "agentlog.jsonc", "agentlog.json"}

// FormatOf returns the syntax implied by a file name.
func FormatOf(path string) FileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FileJSON
	default:
		return FileYAML
	}
}

// Parse decodes data over the defaults and expands ${root} using the root
// as written.
func Parse(data []byte, format FileFormat) (*Config, error) {
	cfg, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	cfg.Expand()
	return cfg, nil
}

func decode(data []byte, format FileFormat) (*Config, error) {
	if format == FileJSON {
		data = jsonc.ToJSON(data)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Worker.Env == nil {
		cfg.Worker.Env = map[string]string{}
	}
	return cfg, nil
}

// Load reads the file at path. A relative root is taken relative to the
// directory holding the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := decode(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !filepath.IsAbs(cfg.Root) {
		dir, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("resolve root: %w", err)
		}
		cfg.Root = filepath.Join(dir, cfg.Root)
	}
	cfg.Expand()
	return cfg, nil
}

// Save writes cfg as YAML, or JSON when path ends in .json or .jsonc.
func Save(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if FormatOf(path) == FileJSON {
		data, err = marshalJSON(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Find returns the first configuration file present in dir.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no %s in %s: %w", strings.Join(FileNames, ", "), dir, fs.ErrNotExist)
}

// Resolve loads the explicit path when given, otherwise the file found in
// dir, otherwise the defaults rooted at dir. It returns the path that was
// loaded, or "" for defaults.
func Resolve(explicit, dir string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	path, err := Find(dir)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		cfg.Root = dir
		cfg.Expand()
		return cfg, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Expand replaces ${root} in the worker's paths, socket, and environment.
func (c *Config) Expand() {
	r := strings.NewReplacer("${root}", c.Root)
	w := &c.Worker
	w.Dir = r.Replace(w.Dir)
	w.LogDir = r.Replace(w.LogDir)
	w.Socket = r.Replace(w.Socket)
	for i, f := range w.PromptFiles {
		w.PromptFiles[i] = r.Replace(f)
	}
	for k, v := range w.Env {
		w.Env[k] = r.Replace(v)
	}
}

// marshalJSON round-trips through YAML so durations keep their "30s" form.
func marshalJSON(cfg *Config) ([]byte, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
