// gppc - the groovypp static compiler CLI
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/groovypp/manifest"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	configDir := flag.String("config", ".", "Directory to search for groovypp.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gppc [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles the project module to a groovypp image.\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  build           compile, write the image and update the class cache\n")
		fmt.Fprintf(os.Stderr, "  disasm [image]  print every method of an image (default: project image)\n")
		fmt.Fprintf(os.Stderr, "  cache           list cached classes\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := loadManifest(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}
	configureLogging(*verbose, m.Compiler.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch args[0] {
	case "build":
		err = runBuild(ctx, m, os.Stdout)
	case "disasm":
		path := m.ImagePath()
		if len(args) > 1 {
			path = args[1]
		}
		err = runDisasm(path, os.Stdout)
	case "cache":
		err = runCache(ctx, m, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadManifest finds groovypp.toml at or above dir, falling back to the
// defaults rooted at dir.
func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return manifest.Default(abs), nil
}

// configureLogging maps -v to info and compiler.debug to debug level.
func configureLogging(verbose, debug bool) {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	if debug {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
}
