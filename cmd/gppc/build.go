package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chazu/groovypp/compiler"
	"github.com/chazu/groovypp/image"
	"github.com/chazu/groovypp/manifest"
	"github.com/chazu/groovypp/store"
)

// runBuild compiles the sample module, writes the image and records every
// class in the cache. Diagnostics are printed; errors among them fail the
// build after the image has been written.
func runBuild(ctx context.Context, m *manifest.Manifest, out io.Writer) error {
	mod := sampleModule(m.Project.Package, manifest.ToPascalCase(m.Project.Name))
	c := compiler.New(mod, m.CompilerOptions())
	compileErr := c.CompileModule(ctx)
	if errors.Is(compileErr, context.Canceled) {
		return compileErr
	}
	for _, d := range c.Diagnostics().All() {
		fmt.Fprintln(out, d)
	}

	img := image.FromModule(mod, image.NewSession())
	path := m.ImagePath()
	if err := image.WriteFile(path, img); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%d classes, session %s)\n", path, len(img.Classes), img.Session)

	st, err := store.Open(m.CachePath())
	if err != nil {
		return err
	}
	defer st.Close()
	stats, err := st.PutImage(ctx, img)
	if err != nil {
		return err
	}
	names := make([]string, len(img.Classes))
	for i, cls := range img.Classes {
		names[i] = cls.Name
	}
	pruned, err := st.Prune(ctx, img.Module, names)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "cache: %d written, %d unchanged, %d pruned\n", stats.Written, stats.Unchanged, pruned)
	return compileErr
}
