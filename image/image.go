// Package image stores a compiled module as a self-contained file: a magic
// header followed by the canonical CBOR encoding of every class, its members
// and their instruction records.
package image

import (
	"github.com/google/uuid"

	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
	"github.com/chazu/groovypp/compiler/hash"
)

// Magic identifies a groovypp image file.
var Magic = [4]byte{'G', 'P', 'P', 'I'}

// Version is the image format version. Readers reject other versions.
const Version uint32 = 1

// ---------------------------------------------------------------------------
// Image records
// ---------------------------------------------------------------------------

// Image is one compiled module.
type Image struct {
	Version uint32  `cbor:"version"`
	Module  string  `cbor:"module"`
	Session string  `cbor:"session"`
	Classes []Class `cbor:"classes"`
}

// Class is a compiled class.
type Class struct {
	Name        string   `cbor:"name"`
	Super       string   `cbor:"super,omitempty"`
	Interfaces  []string `cbor:"interfaces,omitempty"`
	Flags       uint32   `cbor:"flags"`
	Fields      []Field  `cbor:"fields,omitempty"`
	Methods     []Method `cbor:"methods,omitempty"`
	Fingerprint []byte   `cbor:"fingerprint"`
}

// Field is a field declaration.
type Field struct {
	Name  string `cbor:"name"`
	Desc  string `cbor:"desc"`
	Flags uint32 `cbor:"flags"`
}

// Method is a method or constructor. Code is nil for methods without a body.
type Method struct {
	Name      string `cbor:"name"`
	Desc      string `cbor:"desc"`
	Flags     uint32 `cbor:"flags"`
	Stubbed   bool   `cbor:"stubbed,omitempty"`
	MaxStack  int    `cbor:"max-stack,omitempty"`
	MaxLocals int    `cbor:"max-locals,omitempty"`
	Code      []Insn `cbor:"code"`
}

// Insn is an instruction with labels replaced by ids. Label ids start at 1
// and are numbered by first reference within the method; 0 means none.
type Insn struct {
	Kind    uint8  `cbor:"k"`
	Op      uint8  `cbor:"op,omitempty"`
	Arg     int    `cbor:"a,omitempty"`
	Arg2    int    `cbor:"b,omitempty"`
	Owner   string `cbor:"owner,omitempty"`
	Name    string `cbor:"name,omitempty"`
	Desc    string `cbor:"desc,omitempty"`
	Const   *Const `cbor:"const,omitempty"`
	Label   int    `cbor:"l,omitempty"`
	End     int    `cbor:"end,omitempty"`
	Handler int    `cbor:"handler,omitempty"`
	Labels  []int  `cbor:"labels,omitempty"`
	Keys    []int  `cbor:"keys,omitempty"`
}

// ConstKind tags the Go type of an LDC operand.
type ConstKind uint8

const (
	ConstString ConstKind = iota + 1
	ConstInt
	ConstLong
	ConstFloat
	ConstDouble
	ConstBool
)

// Const is an LDC operand.
type Const struct {
	Kind ConstKind `cbor:"t"`
	S    string    `cbor:"s,omitempty"`
	I    int64     `cbor:"i,omitempty"`
	F    float64   `cbor:"f,omitempty"`
}

// NewSession returns a fresh compilation session id.
func NewSession() uuid.UUID { return uuid.New() }

// SessionID parses the session stamped into img.
func (img *Image) SessionID() (uuid.UUID, error) {
	return uuid.Parse(img.Session)
}

// Lookup returns the class with the given binary name, or nil.
func (img *Image) Lookup(name string) *Class {
	for i := range img.Classes {
		if img.Classes[i].Name == name {
			return &img.Classes[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Building images from compiled modules
// ---------------------------------------------------------------------------

// FromModule captures every class registered in mod, including synthesized
// closure classes, in registration order.
func FromModule(mod *ast.Module, session uuid.UUID) *Image {
	img := &Image{Version: Version, Module: mod.Name, Session: session.String()}
	for _, c := range mod.Classes() {
		img.Classes = append(img.Classes, FromClass(c))
	}
	return img
}

// FromClass captures one class.
func FromClass(c *ast.Class) Class {
	b := c.Base()
	fp := hash.Class(b)
	out := Class{
		Name:        b.Name,
		Flags:       uint32(b.Modifiers),
		Fingerprint: fp[:],
	}
	if b.Super != nil {
		out.Super = b.Super.InternalName()
	}
	for _, i := range b.Interfaces {
		out.Interfaces = append(out.Interfaces, i.InternalName())
	}
	for _, f := range b.Fields {
		out.Fields = append(out.Fields, Field{Name: f.Name, Desc: f.Type.Descriptor(), Flags: uint32(f.Modifiers)})
	}
	for _, m := range b.Constructors {
		out.Methods = append(out.Methods, fromMethod(m))
	}
	for _, m := range b.Methods {
		out.Methods = append(out.Methods, fromMethod(m))
	}
	return out
}

func fromMethod(m *ast.Method) Method {
	out := Method{
		Name:    m.Name,
		Desc:    m.Descriptor(),
		Flags:   uint32(m.Modifiers),
		Stubbed: m.Stubbed,
	}
	if m.Compiled != nil {
		out.MaxStack = m.Compiled.MaxStack
		out.MaxLocals = m.Compiled.MaxLocals
		out.Code = encodeInsns(m.Compiled.Insns)
	}
	return out
}

// ---------------------------------------------------------------------------
// Instruction records
// ---------------------------------------------------------------------------

func encodeInsns(insns []asm.Insn) []Insn {
	ids := make(map[*asm.Label]int)
	id := func(l *asm.Label) int {
		if l == nil {
			return 0
		}
		if n, ok := ids[l]; ok {
			return n
		}
		n := len(ids) + 1
		ids[l] = n
		return n
	}

	out := make([]Insn, 0, len(insns))
	for _, in := range insns {
		if in.Kind == asm.KindMaxs {
			continue
		}
		rec := Insn{
			Kind:    uint8(in.Kind),
			Op:      uint8(in.Op),
			Arg:     in.Arg,
			Arg2:    in.Arg2,
			Owner:   in.Owner,
			Name:    in.Name,
			Desc:    in.Desc,
			Const:   encodeConst(in.Const),
			Label:   id(in.Label),
			End:     id(in.End),
			Handler: id(in.Handler),
			Keys:    in.Keys,
		}
		for _, l := range in.Labels {
			rec.Labels = append(rec.Labels, id(l))
		}
		out = append(out, rec)
	}
	return out
}

func encodeConst(v any) *Const {
	switch c := v.(type) {
	case string:
		return &Const{Kind: ConstString, S: c}
	case int:
		return &Const{Kind: ConstInt, I: int64(c)}
	case int64:
		return &Const{Kind: ConstLong, I: c}
	case float32:
		return &Const{Kind: ConstFloat, F: float64(c)}
	case float64:
		return &Const{Kind: ConstDouble, F: c}
	case bool:
		n := int64(0)
		if c {
			n = 1
		}
		return &Const{Kind: ConstBool, I: n}
	}
	return nil
}

func (c *Const) value() any {
	if c == nil {
		return nil
	}
	switch c.Kind {
	case ConstString:
		return c.S
	case ConstInt:
		return int(c.I)
	case ConstLong:
		return c.I
	case ConstFloat:
		return float32(c.F)
	case ConstDouble:
		return c.F
	case ConstBool:
		return c.I != 0
	}
	return nil
}

// Sequence rebuilds the instruction sequence of m with fresh labels.
// It returns nil for methods without code.
func (m *Method) Sequence() (*asm.Sequence, error) {
	if m.Code == nil {
		return nil, nil
	}
	labels := make(map[int]*asm.Label)
	label := func(n int) *asm.Label {
		if n == 0 {
			return nil
		}
		if l, ok := labels[n]; ok {
			return l
		}
		l := asm.NewLabel()
		labels[n] = l
		return l
	}

	seq := &asm.Sequence{MaxStack: m.MaxStack, MaxLocals: m.MaxLocals}
	for i, rec := range m.Code {
		if asm.InsnKind(rec.Kind) >= asm.KindMaxs {
			return nil, &CorruptError{Method: m.Name + m.Desc, Index: i, Reason: "unknown instruction kind"}
		}
		if rec.Const != nil && rec.Const.value() == nil {
			return nil, &CorruptError{Method: m.Name + m.Desc, Index: i, Reason: "unknown constant kind"}
		}
		in := asm.Insn{
			Kind:    asm.InsnKind(rec.Kind),
			Op:      asm.Opcode(rec.Op),
			Arg:     rec.Arg,
			Arg2:    rec.Arg2,
			Owner:   rec.Owner,
			Name:    rec.Name,
			Desc:    rec.Desc,
			Const:   rec.Const.value(),
			Label:   label(rec.Label),
			End:     label(rec.End),
			Handler: label(rec.Handler),
			Keys:    rec.Keys,
		}
		for _, n := range rec.Labels {
			in.Labels = append(in.Labels, label(n))
		}
		seq.Insns = append(seq.Insns, in)
	}
	return seq, nil
}
