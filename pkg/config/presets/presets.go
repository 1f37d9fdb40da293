// Package presets scaffolds an agent workspace for common project types.
package presets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/modoterra/agentlog/pkg/config"
)

// Type describes a kind of project and the commands the agent should use
// to check its work.
type Type struct {
	Key   string
	Label string
	Build string
	Test  string
	Lint  string
}

var types = []Type{
	{
		Key:   "spring-boot",
		Label: "Spring Boot (Kotlin/Java)",
		Build: "./gradlew build -x test --no-daemon",
		Test:  "./gradlew test --no-daemon",
	},
	{
		Key:   "react-native",
		Label: "React Native (TypeScript)",
		Lint:  "npx tsc --noEmit",
	},
	{
		Key:   "nextjs",
		Label: "Next.js (TypeScript)",
		Build: "npm run build",
		Test:  "npm test",
		Lint:  "npx next lint",
	},
	{
		Key:   "custom",
		Label: "Custom",
	},
}

// Types returns the known project types.
func Types() []Type { return slices.Clone(types) }

// Lookup finds a project type by key.
func Lookup(key string) (Type, bool) {
	for _, t := range types {
		if t.Key == key {
			return t, true
		}
	}
	return Type{}, false
}

// Keys lists the known type keys.
func Keys() []string {
	keys := make([]string, len(types))
	for i, t := range types {
		keys[i] = t.Key
	}
	return keys
}

// Detect guesses the project type at root from its marker files. It falls
// back to "custom".
func Detect(root string) string {
	for _, name := range []string{"build.gradle", "build.gradle.kts", "pom.xml", "settings.gradle.kts"} {
		if exists(filepath.Join(root, name)) {
			return "spring-boot"
		}
	}

	pkg, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err == nil && gjson.ValidBytes(pkg) {
		deps := func(name string) bool {
			for _, section := range []string{"dependencies", "devDependencies"} {
				if gjson.GetBytes(pkg, section+"."+gjson.Escape(name)).Exists() {
					return true
				}
			}
			return false
		}
		if deps("react-native") {
			return "react-native"
		}
		if deps("next") {
			return "nextjs"
		}
	}
	for _, name := range []string{"next.config.js", "next.config.mjs", "next.config.ts"} {
		if exists(filepath.Join(root, name)) {
			return "nextjs"
		}
	}
	return "custom"
}

// Options customizes a generated scaffold. Empty fields take the type's
// defaults.
type Options struct {
	Name     string
	Role     string
	Build    string
	Test     string
	Lint     string
	Interval time.Duration
}

// Scaffold is the set of files written by WriteScaffold.
type Scaffold struct {
	Type   Type
	Config *config.Config
	Rules  string
	Tasks  string
}

// Generate builds the scaffold for a project at root.
func Generate(root, typeKey string, opts Options) (*Scaffold, error) {
	t, ok := Lookup(typeKey)
	if !ok {
		return nil, fmt.Errorf("unknown project type %q (available: %s)", typeKey, strings.Join(Keys(), ", "))
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	if opts.Name == "" {
		opts.Name = filepath.Base(absRoot)
	}
	if opts.Role == "" {
		opts.Role = opts.Name + " development"
	}
	if opts.Build != "" {
		t.Build = opts.Build
	}
	if opts.Test != "" {
		t.Test = opts.Test
	}
	if opts.Lint != "" {
		t.Lint = opts.Lint
	}

	cfg := config.Default()
	cfg.Worker.Prompt = "Follow .ai/rules.md and continue with the next unchecked task in .ai/tasks.md."
	if opts.Interval > 0 {
		cfg.Worker.Interval = opts.Interval
	}

	return &Scaffold{
		Type:   t,
		Config: cfg,
		Rules:  rules(t, opts),
		Tasks:  tasksTemplate,
	}, nil
}

const tasksTemplate = `# Tasks

Work through the tasks below in order. Mark each finished item with ` + "`[x]`" + `.

---

- [ ] Describe the first task here
`

func rules(t Type, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", opts.Name)
	fmt.Fprintf(&b, "## Role\n\n%s\n\n", opts.Role)
	fmt.Fprintf(&b, "## Project type\n\n%s\n\n", t.Label)

	b.WriteString("## Workflow\n\n")
	b.WriteString("1. Pick the first unchecked task in `.ai/tasks.md`.\n")
	b.WriteString("2. Implement it in small, reviewable steps.\n")
	b.WriteString("3. Run the checks below and fix any failure before moving on.\n")
	b.WriteString("4. Check the task off and commit.\n")

	checks := [][2]string{{"Build", t.Build}, {"Test", t.Test}, {"Lint", t.Lint}}
	var lines []string
	for _, c := range checks {
		if c[1] != "" {
			lines = append(lines, fmt.Sprintf("- %s: `%s`", c[0], c[1]))
		}
	}
	if len(lines) > 0 {
		b.WriteString("\n## Checks\n\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n## Notes\n\nKeep design notes in `.ai/docs/`.\n")
	return b.String()
}

// ErrExists is returned when the workspace is already scaffolded.
var ErrExists = errors.New(".ai/ already exists (use --force to overwrite)")

// GitignoreEntry is appended to an existing .gitignore.
const GitignoreEntry = ".ai/logs/"

// WriteScaffold writes the scaffold under root and returns the paths it
// created, relative to root.
func WriteScaffold(root string, s *Scaffold, force bool) ([]string, error) {
	aiDir := filepath.Join(root, ".ai")
	if exists(aiDir) && !force {
		return nil, ErrExists
	}
	for _, dir := range []string{filepath.Join(aiDir, "docs"), filepath.Join(aiDir, "logs")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	files := []struct {
		rel     string
		content string
	}{
		{".ai/rules.md", s.Rules},
		{".ai/tasks.md", s.Tasks},
		{".ai/docs/.gitkeep", ""},
	}
	var written []string
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(root, f.rel), []byte(f.content), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", f.rel, err)
		}
		written = append(written, f.rel)
	}

	cfgPath := filepath.Join(root, config.FileNames[0])
	if !exists(cfgPath) || force {
		if err := config.Save(s.Config, cfgPath); err != nil {
			return written, fmt.Errorf("write %s: %w", config.FileNames[0], err)
		}
		written = append(written, config.FileNames[0])
	}

	updated, err := ensureGitignore(filepath.Join(root, ".gitignore"))
	if err != nil {
		return written, err
	}
	if updated {
		written = append(written, ".gitignore")
	}
	return written, nil
}

// ensureGitignore appends the log directory to an existing .gitignore that
// does not mention it yet.
func ensureGitignore(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if strings.Contains(string(data), GitignoreEntry) {
		return false, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if _, err := f.WriteString("\n# agent logs\n" + GitignoreEntry + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
