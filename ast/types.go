// Package ast holds the typed tree and the class model consumed by the
// static compiler. Instances are produced by an upstream type checker; the
// compiler only mutates them to narrow return types and to build synthetic
// closure classes.
package ast

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chazu/groovypp/asm"
)

// ---------------------------------------------------------------------------
// Modifiers
// ---------------------------------------------------------------------------

// Modifier is a bit set of JVM access flags.
type Modifier uint32

const (
	ModPublic    Modifier = 0x0001
	ModPrivate   Modifier = 0x0002
	ModProtected Modifier = 0x0004
	ModStatic    Modifier = 0x0008
	ModFinal     Modifier = 0x0010
	ModInterface Modifier = 0x0200
	ModAbstract  Modifier = 0x0400
	ModSynthetic Modifier = 0x1000
)

// Has reports whether all bits of m2 are set.
func (m Modifier) Has(m2 Modifier) bool { return m&m2 == m2 }

// Kind classifies a Class.
type Kind uint8

const (
	KindClass Kind = iota
	KindPrimitive
	KindTypeVar
	KindArray
	// KindImprove marks a return type that is still pending inference.
	KindImprove
	// KindNull is the type of the null literal.
	KindNull
)

// ---------------------------------------------------------------------------
// Class
// ---------------------------------------------------------------------------

// GenericParam is a type variable declared by a generic class.
type GenericParam struct {
	Name  string
	Bound *Class
}

// Class is the compile-time model of a JVM type. A parameterized use of a
// generic class is a separate Class whose Redirect points at the declaration.
type Class struct {
	Name      string // binary name, e.g. java.util.List
	Kind      Kind
	Modifiers Modifier

	Super         *Class
	Interfaces    []*Class
	GenericParams []*GenericParam

	Redirect *Class
	TypeArgs []*Class

	// Component is the element type of an array class.
	Component *Class

	Fields       []*Field
	Properties   []*Property
	Methods      []*Method
	Constructors []*Method

	Outer  *Class
	Module *Module

	// closures counts closure classes synthesized inside this class.
	closures int

	version atomic.Uint64
	sealed  atomic.Bool
	mu      sync.Mutex
}

// NewClass creates a class with the given name, modifiers and superclass.
func NewClass(name string, mods Modifier, super *Class, ifaces ...*Class) *Class {
	return &Class{Name: name, Kind: KindClass, Modifiers: mods, Super: super, Interfaces: ifaces}
}

// NewInterface creates an abstract interface type.
func NewInterface(name string, ifaces ...*Class) *Class {
	return &Class{Name: name, Kind: KindClass, Modifiers: ModPublic | ModInterface | ModAbstract, Interfaces: ifaces}
}

// TypeVar returns a fresh type-variable reference.
func TypeVar(name string) *Class {
	return &Class{Name: name, Kind: KindTypeVar, Super: ObjectType}
}

// ArrayOf returns the array type with the given component.
func ArrayOf(component *Class) *Class {
	return &Class{Name: component.Name + "[]", Kind: KindArray, Component: component, Super: ObjectType}
}

// Parameterize returns a use of generic class c with the given arguments.
func Parameterize(c *Class, args ...*Class) *Class {
	base := c.Base()
	return &Class{
		Name:     base.Name,
		Kind:     base.Kind,
		Redirect: base,
		TypeArgs: args,
	}
}

// Base returns the declaration behind a parameterized use.
func (c *Class) Base() *Class {
	for c != nil && c.Redirect != nil {
		c = c.Redirect
	}
	return c
}

// Version is bumped on every structural mutation.
func (c *Class) Version() uint64 { return c.Base().version.Load() }

// Sealed reports whether the class has been registered with a module.
func (c *Class) Sealed() bool { return c.Base().sealed.Load() }

func (c *Class) mutate() *Class {
	b := c.Base()
	if b.sealed.Load() {
		panic(fmt.Sprintf("ast: structural mutation of registered class %s", b.Name))
	}
	b.version.Add(1)
	return b
}

func (c *Class) IsPrimitive() bool { return c.Base().Kind == KindPrimitive }
func (c *Class) IsTypeVar() bool   { return c.Kind == KindTypeVar }
func (c *Class) IsArray() bool     { return c.Base().Kind == KindArray }
func (c *Class) IsInterface() bool { return c.Base().Modifiers.Has(ModInterface) }
func (c *Class) IsAbstract() bool  { return c.Base().Modifiers.Has(ModAbstract) }

// IsWide reports whether values of c occupy two slots.
func (c *Class) IsWide() bool {
	b := c.Base()
	return b == LongType || b == DoubleType
}

// Equals compares declarations and type arguments.
func (c *Class) Equals(o *Class) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Kind == KindTypeVar || o.Kind == KindTypeVar {
		return c.Kind == o.Kind && c.Name == o.Name
	}
	if c.IsArray() && o.IsArray() {
		return c.Base().Component.Equals(o.Base().Component)
	}
	if c.Base() != o.Base() {
		return false
	}
	if len(c.TypeArgs) != len(o.TypeArgs) {
		return len(c.TypeArgs) == 0 || len(o.TypeArgs) == 0
	}
	for i := range c.TypeArgs {
		if !c.TypeArgs[i].Equals(o.TypeArgs[i]) {
			return false
		}
	}
	return true
}

// SuperClass returns the superclass seen through the parameterization of c.
func (c *Class) SuperClass() *Class {
	b := c.Base()
	if b.Super == nil {
		return nil
	}
	return SubstituteFrom(b.Super, c)
}

// InterfaceList returns the direct interfaces seen through c's parameterization.
func (c *Class) InterfaceList() []*Class {
	b := c.Base()
	out := make([]*Class, len(b.Interfaces))
	for i, iface := range b.Interfaces {
		out[i] = SubstituteFrom(iface, c)
	}
	return out
}

// InternalName returns the slash-separated JVM name.
func (c *Class) InternalName() string {
	if c.IsTypeVar() {
		return Erase(c).InternalName()
	}
	b := c.Base()
	if b.Kind == KindArray {
		return b.Descriptor()
	}
	return strings.ReplaceAll(b.Name, ".", "/")
}

// Descriptor returns the JVM field descriptor of the erased type.
func (c *Class) Descriptor() string {
	if c.IsTypeVar() {
		return Erase(c).Descriptor()
	}
	b := c.Base()
	switch b {
	case VoidType:
		return "V"
	case BooleanType:
		return "Z"
	case ByteType:
		return "B"
	case CharType:
		return "C"
	case ShortType:
		return "S"
	case IntType:
		return "I"
	case LongType:
		return "J"
	case FloatType:
		return "F"
	case DoubleType:
		return "D"
	}
	if b.Kind == KindArray {
		return "[" + b.Component.Descriptor()
	}
	if b.Kind == KindImprove || b.Kind == KindNull {
		return ObjectType.Descriptor()
	}
	return "L" + strings.ReplaceAll(b.Name, ".", "/") + ";"
}

// String renders the class with its type arguments.
func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	if len(c.TypeArgs) == 0 {
		return c.Name
	}
	args := make([]string, len(c.TypeArgs))
	for i, a := range c.TypeArgs {
		args[i] = a.String()
	}
	return c.Name + "<" + strings.Join(args, ",") + ">"
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

// Param is a method parameter. Its type may be narrowed when a closure is
// coerced to a single-abstract-method target.
type Param struct {
	Name    string
	Type    *Class
	Default Expr
}

// Field is a class field.
type Field struct {
	Name      string
	Type      *Class
	Modifiers Modifier
	Owner     *Class
	// NoExternalInit marks fields that are not constructor parameters.
	NoExternalInit bool
}

func (f *Field) IsStatic() bool { return f.Modifiers.Has(ModStatic) }

// Property is a field with generated accessors.
type Property struct {
	Name   string
	Field  *Field
	Getter *Method
	Setter *Method
}

// Method is a method or constructor.
type Method struct {
	Name      string
	Owner     *Class
	Params    []*Param
	Return    *Class
	Modifiers Modifier

	// Trait marks an abstract member that already has a default body.
	Trait bool
	// ImprovedTypes marks methods whose parameter types were narrowed and
	// which must be recompiled once the closure type is known.
	ImprovedTypes bool

	Code     Stmt
	Compiled *asm.Sequence
	// Stubbed is set when compilation failed and Compiled is an empty body.
	Stubbed bool

	// Master is set on dependent overloads of a closure call method.
	Master     *Method
	Dependents []*Method

	Line int
}

func (m *Method) IsStatic() bool   { return m.Modifiers.Has(ModStatic) }
func (m *Method) IsAbstract() bool { return m.Modifiers.Has(ModAbstract) }
func (m *Method) IsConstructor() bool {
	return m.Name == "<init>"
}

// Descriptor returns the erased JVM method descriptor.
func (m *Method) Descriptor() string {
	return MethodDescriptor(m.Return, m.Params)
}

// MethodDescriptor builds "(params)ret".
func MethodDescriptor(ret *Class, params []*Param) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(p.Type.Descriptor())
	}
	sb.WriteByte(')')
	if ret == nil {
		ret = VoidType
	}
	sb.WriteString(ret.Descriptor())
	return sb.String()
}

// ArgSlots returns the number of slots taken by the parameters.
func (m *Method) ArgSlots() int {
	n := 0
	for _, p := range m.Params {
		n++
		if p.Type.IsWide() {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Structural mutation
// ---------------------------------------------------------------------------

// AddField adds a field and returns it.
func (c *Class) AddField(name string, mods Modifier, typ *Class) *Field {
	b := c.mutate()
	b.mu.Lock()
	defer b.mu.Unlock()
	f := &Field{Name: name, Type: typ, Modifiers: mods, Owner: b}
	b.Fields = append(b.Fields, f)
	return f
}

// AddMethod adds a method and returns it.
func (c *Class) AddMethod(name string, mods Modifier, ret *Class, params []*Param, code Stmt) *Method {
	b := c.mutate()
	b.mu.Lock()
	defer b.mu.Unlock()
	m := &Method{Name: name, Owner: b, Params: params, Return: ret, Modifiers: mods, Code: code}
	b.Methods = append(b.Methods, m)
	return m
}

// AddConstructor adds a constructor.
func (c *Class) AddConstructor(mods Modifier, params []*Param, code Stmt) *Method {
	b := c.mutate()
	b.mu.Lock()
	defer b.mu.Unlock()
	m := &Method{Name: "<init>", Owner: b, Params: params, Return: VoidType, Modifiers: mods, Code: code}
	b.Constructors = append(b.Constructors, m)
	return m
}

// AddProperty adds a property backed by a field of the same name.
// Accessor methods are attached by the compiler.
func (c *Class) AddProperty(name string, mods Modifier, typ *Class) *Property {
	f := c.AddField(name, ModPrivate, typ)
	b := c.Base()
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &Property{Name: name, Field: f}
	b.Properties = append(b.Properties, p)
	return p
}

// SetSuper replaces the superclass and interface set.
func (c *Class) SetSuper(super *Class, ifaces []*Class) {
	b := c.mutate()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Super = super
	b.Interfaces = ifaces
}

// Touch records a structural change made through a member (e.g. a parameter
// type narrowing).
func (c *Class) Touch() { c.mutate() }

// NextClosureName returns the name for the next closure class nested in c.
func (c *Class) NextClosureName() string {
	b := c.Base()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closures++
	return fmt.Sprintf("%s$%d", b.Name, b.closures)
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

// DeclaredField returns the field declared directly on c.
func (c *Class) DeclaredField(name string) *Field {
	for _, f := range c.Base().Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Field finds a field on c or its superclasses.
func (c *Class) Field(name string) *Field {
	for t := c.Base(); t != nil; t = t.Super.Base() {
		if f := t.DeclaredField(name); f != nil {
			return f
		}
	}
	return nil
}

// DeclaredMethods returns methods named name declared directly on c.
func (c *Class) DeclaredMethods(name string) []*Method {
	var out []*Method
	for _, m := range c.Base().Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// DeclaredMethod returns the method with the given name and descriptor.
func (c *Class) DeclaredMethod(name, desc string) *Method {
	for _, m := range c.Base().Methods {
		if m.Name == name && m.Descriptor() == desc {
			return m
		}
	}
	return nil
}

// OutermostClass walks Outer links to the top-level class.
func (c *Class) OutermostClass() *Class {
	t := c.Base()
	for t.Outer != nil {
		t = t.Outer.Base()
	}
	return t
}

// ---------------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------------

// Module is the registry of classes produced by one compilation.
type Module struct {
	Name string

	mu      sync.Mutex
	classes []*Class
	index   map[string]*Class
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, index: make(map[string]*Class)}
}

// AddClass registers c. Registering an already known class is a no-op.
// Synthetic classes are sealed on registration.
func (m *Module) AddClass(c *Class) {
	b := c.Base()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[b.Name]; ok {
		return
	}
	b.Module = m
	m.index[b.Name] = b
	m.classes = append(m.classes, b)
	if b.Modifiers.Has(ModSynthetic) {
		b.sealed.Store(true)
	}
}

// Classes returns a snapshot of the registered classes in registration order.
func (m *Module) Classes() []*Class {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Class, len(m.classes))
	copy(out, m.classes)
	return out
}

// Lookup returns the class registered under name.
func (m *Module) Lookup(name string) *Class {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index[name]
}
