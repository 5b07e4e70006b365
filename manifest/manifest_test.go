package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/groovypp/asm"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "test-app"
package = "org.example"
version = "0.1.0"

[compiler]
debug = true
workers = 3

[optimizer]
boxing = false

[output]
image = "build/test.gppi"

[cache]
database = "/var/cache/gpp.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.Project.Package != "org.example" {
		t.Errorf("project package = %q, want org.example", m.Project.Package)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if !m.Compiler.Debug || m.Compiler.Workers != 3 {
		t.Errorf("compiler = %+v, want debug and 3 workers", m.Compiler)
	}
	want := asm.Stages{DupStore: true, Boxing: false, LoadPop: true}
	if got := m.Stages(); got != want {
		t.Errorf("stages = %+v, want %+v", got, want)
	}
	if got := m.ImagePath(); got != filepath.Join(m.Dir, "build", "test.gppi") {
		t.Errorf("image path = %q", got)
	}
	if got := m.CachePath(); got != "/var/cache/gpp.db" {
		t.Errorf("cache path = %q, want absolute path kept", got)
	}

	opts := m.CompilerOptions()
	if opts.Stages != want || !opts.Debug || opts.Workers != 3 {
		t.Errorf("compiler options = %+v", opts)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "my-app"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Stages() != asm.AllStages {
		t.Errorf("stages = %+v, want every stage enabled", m.Stages())
	}
	if m.Project.Package != "myapp" {
		t.Errorf("package = %q, want myapp", m.Project.Package)
	}
	if m.Output.Image != "my-app.gppi" {
		t.Errorf("image = %q, want my-app.gppi", m.Output.Image)
	}
	if m.CachePath() != filepath.Join(m.Dir, ".groovypp", "cache.db") {
		t.Errorf("cache path = %q", m.CachePath())
	}
	if m.Compiler.Workers != 0 {
		t.Errorf("workers = %d, want 0 (GOMAXPROCS)", m.Compiler.Workers)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[project\nname = 1", "parse error"},
		{"unknown key", "[compiler]\nthreads = 2", "unknown key compiler.threads"},
		{"negative workers", "[compiler]\nworkers = -1", "must not be negative"},
		{"reserved package", "[project]\npackage = \"org.class\"", "reserved word"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tc.content)
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Load error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestDefaultManifest(t *testing.T) {
	m := Default("/work/demo")
	if m.Project.Name != "demo" || m.Project.Package != "demo" {
		t.Errorf("project = %+v", m.Project)
	}
	if m.Stages() != asm.AllStages {
		t.Errorf("stages = %+v", m.Stages())
	}
	if m.ImagePath() != "/work/demo/demo.gppi" {
		t.Errorf("image path = %q", m.ImagePath())
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
	abs, _ := filepath.Abs(dir)
	if m.Dir != abs {
		t.Errorf("dir = %q, want %q", m.Dir, abs)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no groovypp.toml exists")
	}
}
