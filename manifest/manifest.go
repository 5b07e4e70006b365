// Package manifest handles groovypp.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/compiler"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "groovypp.toml"

// Manifest represents a groovypp.toml project configuration.
type Manifest struct {
	Project   Project         `toml:"project"`
	Compiler  CompilerConfig  `toml:"compiler"`
	Optimizer OptimizerConfig `toml:"optimizer"`
	Output    OutputConfig    `toml:"output"`
	Cache     CacheConfig     `toml:"cache"`

	// Dir is the directory containing the groovypp.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Package string `toml:"package"`
	Version string `toml:"version"`
}

// CompilerConfig configures the method compiler.
type CompilerConfig struct {
	Debug   bool `toml:"debug"`
	Workers int  `toml:"workers"`
}

// OptimizerConfig toggles the peephole stages. Every stage is on unless the
// manifest turns it off.
type OptimizerConfig struct {
	DupStore bool `toml:"dup-store"`
	Boxing   bool `toml:"boxing"`
	LoadPop  bool `toml:"load-pop"`
}

// OutputConfig configures image output.
type OutputConfig struct {
	Image string `toml:"image"`
}

// CacheConfig configures the compiled-class cache.
type CacheConfig struct {
	Database string `toml:"database"`
}

// Default returns the manifest used when no groovypp.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.Optimizer = OptimizerConfig{DupStore: true, Boxing: true, LoadPop: true}
	m.applyDefaults()
	return m
}

// Load parses a groovypp.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Stages absent from [optimizer] stay enabled.
	for key, stage := range map[string]*bool{
		"dup-store": &m.Optimizer.DupStore,
		"boxing":    &m.Optimizer.Boxing,
		"load-pop":  &m.Optimizer.LoadPop,
	} {
		if !md.IsDefined("optimizer", key) {
			*stage = true
		}
	}
	if m.Compiler.Workers < 0 {
		return nil, fmt.Errorf("%s: compiler.workers must not be negative", path)
	}
	if err := ValidatePackage(m.Project.Package); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Project.Name == "" {
		m.Project.Name = filepath.Base(m.Dir)
	}
	if m.Project.Package == "" {
		m.Project.Package = PackageName(m.Project.Name)
	}
	if m.Output.Image == "" {
		m.Output.Image = m.Project.Name + ".gppi"
	}
	if m.Cache.Database == "" {
		m.Cache.Database = filepath.Join(".groovypp", "cache.db")
	}
}

// FindAndLoad walks up from startDir to find a groovypp.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ImagePath returns the absolute path of the output image.
func (m *Manifest) ImagePath() string {
	return m.resolve(m.Output.Image)
}

// CachePath returns the absolute path of the cache database.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Database)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// Stages returns the optimizer stages the manifest enables.
func (m *Manifest) Stages() asm.Stages {
	return asm.Stages{
		DupStore: m.Optimizer.DupStore,
		Boxing:   m.Optimizer.Boxing,
		LoadPop:  m.Optimizer.LoadPop,
	}
}

// CompilerOptions converts the manifest into compiler options.
func (m *Manifest) CompilerOptions() compiler.Options {
	return compiler.Options{
		Stages:  m.Stages(),
		Debug:   m.Compiler.Debug,
		Workers: m.Compiler.Workers,
	}
}
