// Package unify solves generic type-variable bindings from pairs of formal
// and actual types. It never fails: anything it cannot bind defaults to
// Object.
package unify

import "github.com/chazu/groovypp/ast"

// Unify binds the type variables occurring in formals against the parallel
// actuals. Pairs beyond the shorter list are ignored.
//
// A bare variable takes the first actual it meets. A later actual that the
// binding cannot hold widens it to ast.CommonSuperType. Parameterized formals
// are matched against the actual's view of the same generic declaration.
func Unify(formals, actuals []*ast.Class) ast.Bindings {
	b := ast.Bindings{}
	for i, f := range formals {
		if i >= len(actuals) {
			break
		}
		unify(b, f, actuals[i])
	}
	return b
}

func unify(b ast.Bindings, formal, actual *ast.Class) {
	if formal == nil || actual == nil {
		return
	}
	switch {
	case formal.IsTypeVar():
		bind(b, formal.Name, actual)
	case formal.IsArray():
		if actual.IsArray() {
			unify(b, formal.Base().Component, actual.Base().Component)
		}
	case len(formal.TypeArgs) > 0:
		if actual.Kind == ast.KindNull || actual.Kind == ast.KindImprove {
			return
		}
		view := ast.AsSeenFrom(ast.Wrap(actual), formal)
		if view == nil || len(view.TypeArgs) != len(formal.TypeArgs) {
			return
		}
		for i, fa := range formal.TypeArgs {
			unify(b, fa, view.TypeArgs[i])
		}
	}
}

func bind(b ast.Bindings, name string, actual *ast.Class) {
	if actual.Kind == ast.KindNull || actual.Kind == ast.KindImprove {
		return
	}
	actual = ast.Wrap(actual)
	cur, ok := b[name]
	if !ok {
		b[name] = actual
		return
	}
	if ast.IsDirectlyAssignableFrom(cur, actual) {
		return
	}
	b[name] = ast.CommonSuperType(cur, actual)
}

// InferTypeArguments returns one type per declared variable, in order.
// Unbound variables become Object.
func InferTypeArguments(vars []*ast.GenericParam, formals, actuals []*ast.Class) []*ast.Class {
	b := Unify(formals, actuals)
	out := make([]*ast.Class, len(vars))
	for i, v := range vars {
		if t, ok := b[v.Name]; ok {
			out[i] = t
		} else {
			out[i] = ast.ObjectType
		}
	}
	return out
}

// Substitute applies b to t and defaults any variable left free to Object.
func Substitute(t *ast.Class, b ast.Bindings) *ast.Class {
	return defaultFree(ast.Substitute(t, b))
}

func defaultFree(t *ast.Class) *ast.Class {
	switch {
	case t == nil:
		return nil
	case t.IsTypeVar():
		return ast.ObjectType
	case t.IsArray():
		return ast.ArrayOf(defaultFree(t.Base().Component))
	case len(t.TypeArgs) > 0:
		args := make([]*ast.Class, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = defaultFree(a)
		}
		return ast.Parameterize(t, args...)
	}
	return t
}
