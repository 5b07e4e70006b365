package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chazu/groovypp/image"
	"github.com/chazu/groovypp/manifest"
	"github.com/chazu/groovypp/store"
)

func runDisasm(path string, out io.Writer) error {
	img, err := image.ReadFile(path)
	if err != nil {
		return err
	}
	return img.Disassemble(out)
}

func runCache(ctx context.Context, m *manifest.Manifest, out io.Writer) error {
	st, err := store.Open(m.CachePath())
	if err != nil {
		return err
	}
	defer st.Close()
	entries, err := st.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tMODULE\tFINGERPRINT\tBYTES\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			e.Name, e.Module, e.Fingerprint, e.Size, e.Updated.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
