package compiler

import (
	"strings"
	"sync"

	"github.com/chazu/groovypp/ast"
)

// ---------------------------------------------------------------------------
// Single-abstract-method classification
// ---------------------------------------------------------------------------

type samKey struct {
	class   *ast.Class
	version uint64
}

type samEntry struct {
	once    sync.Once
	methods []*ast.Method
}

// samCache memoizes IsOneMethodAbstract per class structure. Each entry is
// computed exactly once; a structural mutation bumps the class version and
// so selects a fresh entry.
var samCache sync.Map

// IsOneMethodAbstract reports whether t can be the target of closure
// coercion. It returns t's abstract members with the one the closure must
// implement first, followed by the getter, setter and trait members the
// materializer fills in. It returns nil for concrete classes and for types
// with more than one remaining abstract method.
func IsOneMethodAbstract(t *ast.Class) []*ast.Method {
	b := t.Base()
	if !b.IsAbstract() && !b.IsInterface() {
		return nil
	}
	v, _ := samCache.LoadOrStore(samKey{b, b.Version()}, &samEntry{})
	e := v.(*samEntry)
	e.once.Do(func() { e.methods = oneMethodAbstract(b) })
	return e.methods
}

func oneMethodAbstract(c *ast.Class) []*ast.Method {
	var one *ast.Method
	var rest []*ast.Method
	for _, m := range c.AbstractMethods() {
		if likeGetter(m) || likeSetter(m) || m.Trait || objectMethod(m) {
			rest = append(rest, m)
			continue
		}
		if one != nil {
			return nil
		}
		one = m
	}
	if one == nil {
		if len(rest) != 1 {
			return nil
		}
		return rest
	}
	return append([]*ast.Method{one}, rest...)
}

func likeGetter(m *ast.Method) bool {
	return strings.HasPrefix(m.Name, "get") && len(m.Name) > 3 &&
		normalize(m.Return).Base() != ast.VoidType && len(m.Params) == 0
}

func likeSetter(m *ast.Method) bool {
	return strings.HasPrefix(m.Name, "set") && len(m.Name) > 3 &&
		normalize(m.Return).Base() == ast.VoidType && len(m.Params) == 1
}

// objectMethod matches equals and clone redeclared abstract by an interface.
func objectMethod(m *ast.Method) bool {
	switch m.Name {
	case "equals":
		return len(m.Params) == 1 && m.Return.Base() == ast.BooleanType
	case "clone":
		return len(m.Params) == 0
	}
	return false
}

// propertyName derives the property behind an accessor: getFooBar -> fooBar.
func propertyName(accessor string) string {
	p := accessor[3:]
	return strings.ToLower(p[:1]) + p[1:]
}
