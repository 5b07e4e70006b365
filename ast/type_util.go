package ast

import "strings"

// ---------------------------------------------------------------------------
// Erasure and substitution
// ---------------------------------------------------------------------------

// Erase removes type arguments and replaces type variables by their bound.
func Erase(t *Class) *Class {
	if t == nil {
		return nil
	}
	switch {
	case t.Kind == KindTypeVar:
		if t.Super == nil || t.Super.Kind == KindTypeVar {
			return ObjectType
		}
		return Erase(t.Super)
	case t.IsArray():
		return ArrayOf(Erase(t.Base().Component))
	}
	return t.Base()
}

// Bindings maps type-variable names to types.
type Bindings map[string]*Class

// Substitute replaces type variables in t using b. Variables without a
// binding are left in place.
func Substitute(t *Class, b Bindings) *Class {
	if t == nil || len(b) == 0 {
		return t
	}
	switch {
	case t.Kind == KindTypeVar:
		if r, ok := b[t.Name]; ok && r != nil {
			return r
		}
		return t
	case t.IsArray():
		return ArrayOf(Substitute(t.Base().Component, b))
	case len(t.TypeArgs) > 0:
		args := make([]*Class, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = Substitute(a, b)
		}
		return Parameterize(t, args...)
	}
	return t
}

// BindingsOf returns the bindings implied by a parameterized use.
func BindingsOf(use *Class) Bindings {
	base := use.Base()
	if len(use.TypeArgs) == 0 || len(base.GenericParams) == 0 {
		return nil
	}
	b := make(Bindings, len(base.GenericParams))
	for i, gp := range base.GenericParams {
		if i < len(use.TypeArgs) {
			b[gp.Name] = use.TypeArgs[i]
		}
	}
	return b
}

// SubstituteFrom resolves t, written in terms of ctx's declaration, through
// ctx's type arguments.
func SubstituteFrom(t, ctx *Class) *Class {
	return Substitute(t, BindingsOf(ctx))
}

// AsSeenFrom returns the parameterized view of declaring reachable from use
// through its supertypes, or nil if declaring is not a supertype of use.
func AsSeenFrom(use, declaring *Class) *Class {
	target := declaring.Base()
	queue := []*Class{use}
	seen := map[*Class]bool{}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if t == nil || seen[t.Base()] {
			continue
		}
		if t.Base() == target {
			return t
		}
		seen[t.Base()] = true
		if s := t.SuperClass(); s != nil {
			queue = append(queue, s)
		}
		queue = append(queue, t.InterfaceList()...)
	}
	return nil
}

// SubstitutedType resolves t, declared inside declaring, against base (a
// parameterized subtype of declaring). Variables base does not bind are
// erased.
func SubstitutedType(t, declaring, base *Class) *Class {
	if t == nil {
		return nil
	}
	view := AsSeenFrom(base, declaring)
	if view != nil {
		t = SubstituteFrom(t, view)
	}
	return eraseFreeVars(t)
}

func eraseFreeVars(t *Class) *Class {
	switch {
	case t.Kind == KindTypeVar:
		return Erase(t)
	case t.IsArray():
		return ArrayOf(eraseFreeVars(t.Base().Component))
	case len(t.TypeArgs) > 0:
		args := make([]*Class, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = eraseFreeVars(a)
		}
		return Parameterize(t, args...)
	}
	return t
}

// ---------------------------------------------------------------------------
// Subtyping
// ---------------------------------------------------------------------------

// DerivesFrom reports whether super is on c's superclass chain.
func DerivesFrom(c, super *Class) bool {
	target := super.Base()
	for t := c.Base().Super; t != nil; t = t.Base().Super {
		if t.Base() == target {
			return true
		}
	}
	return false
}

// Implements reports whether c implements iface, directly or inherited.
func Implements(c, iface *Class) bool {
	target := iface.Base()
	if !target.Modifiers.Has(ModInterface) {
		return false
	}
	for _, s := range supertypes(c) {
		if s.Base() == target {
			return true
		}
	}
	return false
}

// supertypes lists every proper supertype of c breadth first: the superclass
// before interfaces, interfaces in declaration order.
func supertypes(c *Class) []*Class {
	var out []*Class
	seen := map[*Class]bool{c.Base(): true}
	queue := []*Class{c}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		next := t.InterfaceList()
		if s := t.SuperClass(); s != nil {
			next = append([]*Class{s}, next...)
		}
		for _, n := range next {
			if seen[n.Base()] {
				continue
			}
			seen[n.Base()] = true
			out = append(out, n)
			queue = append(queue, n)
		}
	}
	return out
}

// IsDirectlyAssignableFrom reports whether a value of type from can be stored
// in a location of type to without conversion.
func IsDirectlyAssignableFrom(to, from *Class) bool {
	if to == nil || from == nil {
		return false
	}
	if to.Kind == KindTypeVar {
		to = Erase(to)
	}
	if from.Kind == KindTypeVar {
		from = Erase(from)
	}
	if from.Kind == KindNull {
		return !to.IsPrimitive()
	}
	if to.IsPrimitive() || from.IsPrimitive() {
		return to.Base() == from.Base()
	}
	if to.Base() == ObjectType {
		return true
	}
	if to.IsArray() || from.IsArray() {
		if !to.IsArray() || !from.IsArray() {
			return false
		}
		tc, fc := to.Base().Component, from.Base().Component
		if tc.IsPrimitive() || fc.IsPrimitive() {
			return tc.Base() == fc.Base()
		}
		return IsDirectlyAssignableFrom(tc, fc)
	}
	if to.Base() == from.Base() {
		return true
	}
	if to.IsInterface() {
		return Implements(from, to)
	}
	return DerivesFrom(from, to)
}

// CommonSuperType returns the least common supertype of a and b. a's
// superclass chain is tried first (Object excluded); then a's interfaces,
// breadth first in declaration order. The first candidate assignable from b
// wins, Object if none is.
func CommonSuperType(a, b *Class) *Class {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Kind == KindNull:
		return Wrap(b)
	case b.Kind == KindNull:
		return Wrap(a)
	}
	a, b = Wrap(a), Wrap(b)
	if IsDirectlyAssignableFrom(a, b) {
		return a
	}
	if IsDirectlyAssignableFrom(b, a) {
		return b
	}
	for level := a.SuperClass(); level != nil; level = level.SuperClass() {
		if level.Base() != ObjectType && IsDirectlyAssignableFrom(level, b) {
			return level
		}
	}
	for _, iface := range supertypes(a) {
		if iface.IsInterface() && IsDirectlyAssignableFrom(iface, b) {
			return iface
		}
	}
	return ObjectType
}

// ---------------------------------------------------------------------------
// Abstract members
// ---------------------------------------------------------------------------

// signatureKey identifies a method by name and erased parameters.
func signatureKey(m *Method) string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for _, p := range m.Params {
		sb.WriteString(Erase(p.Type).Descriptor())
	}
	sb.WriteByte(')')
	return sb.String()
}

// AbstractMethods returns the abstract members c still has to implement, in
// declaration order: c's own, then its superclasses', then interfaces'.
func (c *Class) AbstractMethods() []*Method {
	all := append([]*Class{c}, supertypes(c)...)
	implemented := map[string]bool{}
	for _, t := range all {
		if t.IsInterface() {
			continue
		}
		for _, m := range t.Base().Methods {
			if !m.IsAbstract() {
				implemented[signatureKey(m)] = true
			}
		}
	}
	var out []*Method
	seen := map[string]bool{}
	for _, t := range all {
		for _, m := range t.Base().Methods {
			if !m.IsAbstract() && !t.IsInterface() {
				continue
			}
			if t.IsInterface() && m.IsStatic() {
				continue
			}
			k := signatureKey(m)
			if implemented[k] || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, m)
		}
	}
	return out
}
