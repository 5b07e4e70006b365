package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/groovypp/image"
	"github.com/chazu/groovypp/manifest"
	"github.com/chazu/groovypp/store"
)

func testManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "hello-world")
	return manifest.Default(dir)
}

func TestBuildWritesImageAndCache(t *testing.T) {
	ctx := context.Background()
	m := testManifest(t)

	var out strings.Builder
	if err := runBuild(ctx, m, &out); err != nil {
		t.Fatalf("build: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "wrote "+m.ImagePath()) {
		t.Errorf("output = %q", out.String())
	}

	img, err := image.ReadFile(m.ImagePath())
	if err != nil {
		t.Fatal(err)
	}
	cls := img.Lookup("helloworld.HelloWorld")
	if cls == nil {
		t.Fatalf("classes = %d, main class missing", len(img.Classes))
	}
	// two closures are synthesized alongside the interface and main class
	if len(img.Classes) != 4 {
		var names []string
		for _, c := range img.Classes {
			names = append(names, c.Name)
		}
		t.Errorf("classes = %v, want 4", names)
	}
	for _, meth := range cls.Methods {
		if meth.Name == "answer" && meth.Desc != "()I" {
			t.Errorf("answer inferred as %s, want ()I", meth.Desc)
		}
		if meth.Stubbed {
			t.Errorf("%s%s was stubbed", meth.Name, meth.Desc)
		}
	}

	st, err := store.Open(m.CachePath())
	if err != nil {
		t.Fatal(err)
	}
	entries, err := st.List(ctx)
	st.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(img.Classes) {
		t.Errorf("cached %d classes, want %d", len(entries), len(img.Classes))
	}
}

func TestRebuildLeavesCacheUnchanged(t *testing.T) {
	ctx := context.Background()
	m := testManifest(t)
	var out strings.Builder
	if err := runBuild(ctx, m, &out); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := runBuild(ctx, m, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "cache: 0 written, 4 unchanged, 0 pruned") {
		t.Errorf("second build output = %q", out.String())
	}
}

func TestDisasmAndCacheCommands(t *testing.T) {
	ctx := context.Background()
	m := testManifest(t)
	var out strings.Builder
	if err := runBuild(ctx, m, &out); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := runDisasm(m.ImagePath(), &out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"; === sum(I)I ===", "; === greet(Ljava/lang/String;)Ljava/lang/String; ===", "abstract apply(I)I"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("disasm missing %q", want)
		}
	}

	out.Reset()
	if err := runCache(ctx, m, &out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 || !strings.HasPrefix(lines[0], "CLASS") {
		t.Errorf("cache listing:\n%s", out.String())
	}
}

func TestDisasmMissingImage(t *testing.T) {
	if err := runDisasm(filepath.Join(t.TempDir(), "none.gppi"), &strings.Builder{}); err == nil {
		t.Error("expected error for missing image")
	}
}

func TestLoadManifestFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	m, err := loadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Dir != dir || m.Stages() != manifest.Default(dir).Stages() {
		t.Errorf("manifest = %+v", m)
	}
}
