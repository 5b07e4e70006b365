package hash

import (
	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
)

// ---------------------------------------------------------------------------
// Normalization: compiled classes → frozen fingerprint records
// ---------------------------------------------------------------------------

// normalizer numbers labels in the order they are first referenced,
// whether placed or jumped to.
type normalizer struct {
	labels map[*asm.Label]uint32
}

func (n *normalizer) label(l *asm.Label) uint32 {
	if l == nil {
		return 0
	}
	if i, ok := n.labels[l]; ok {
		return i
	}
	i := uint32(len(n.labels) + 1)
	n.labels[l] = i
	return i
}

func (n *normalizer) labelList(ls ...*asm.Label) []uint32 {
	out := make([]uint32, len(ls))
	for i, l := range ls {
		out[i] = n.label(l)
	}
	return out
}

// NormalizeSequence turns a compiled body into frozen records. Line numbers
// are dropped unless lines is set.
func NormalizeSequence(seq *asm.Sequence, lines bool) []HInsn {
	if seq == nil {
		return nil
	}
	n := &normalizer{labels: make(map[*asm.Label]uint32)}
	out := make([]HInsn, 0, len(seq.Insns))
	for _, in := range seq.Insns {
		h := HInsn{Op: byte(in.Op)}
		switch in.Kind {
		case asm.KindInsn:
			h.Tag = TagInsn
		case asm.KindInt:
			h.Tag, h.Arg = TagIntInsn, int64(in.Arg)
		case asm.KindVar:
			h.Tag, h.Arg = TagVarInsn, int64(in.Arg)
		case asm.KindType:
			h.Tag, h.Owner = TagTypeInsn, in.Owner
		case asm.KindField:
			h.Tag, h.Owner, h.Name, h.Desc = TagFieldInsn, in.Owner, in.Name, in.Desc
		case asm.KindMethod:
			h.Tag, h.Owner, h.Name, h.Desc = TagMethodInsn, in.Owner, in.Name, in.Desc
		case asm.KindJump:
			h.Tag, h.Labels = TagJumpInsn, n.labelList(in.Label)
		case asm.KindLabel:
			h.Tag, h.Labels = TagLabel, n.labelList(in.Label)
		case asm.KindLdc:
			h.Tag, h.Const = TagLdc, in.Const
		case asm.KindIinc:
			h.Tag, h.Arg, h.Arg2 = TagIinc, int64(in.Arg), int64(in.Arg2)
		case asm.KindTableSwitch:
			h.Tag, h.Arg, h.Arg2 = TagTableSwitch, int64(in.Arg), int64(in.Arg2)
			h.Labels = n.labelList(append([]*asm.Label{in.Label}, in.Labels...)...)
		case asm.KindLookupSwitch:
			h.Tag = TagLookupSwitch
			h.Labels = n.labelList(append([]*asm.Label{in.Label}, in.Labels...)...)
			h.Keys = make([]int64, len(in.Keys))
			for i, k := range in.Keys {
				h.Keys[i] = int64(k)
			}
		case asm.KindMultiANewArray:
			h.Tag, h.Desc, h.Arg = TagMultiANewArray, in.Desc, int64(in.Arg)
		case asm.KindTryCatch:
			h.Tag, h.Owner = TagTryCatch, in.Owner
			h.Labels = n.labelList(in.Label, in.End, in.Handler)
		case asm.KindLine:
			if !lines {
				continue
			}
			h.Tag, h.Arg, h.Labels = TagLineNumber, int64(in.Arg), n.labelList(in.Label)
		default:
			continue
		}
		out = append(out, h)
	}
	return out
}

// NormalizeMethod freezes a method and its compiled body.
func NormalizeMethod(m *ast.Method) HMethod {
	h := HMethod{
		Name:  m.Name,
		Desc:  m.Descriptor(),
		Flags: uint32(m.Modifiers),
	}
	if m.Compiled != nil {
		h.MaxStack = int64(m.Compiled.MaxStack)
		h.MaxLocals = int64(m.Compiled.MaxLocals)
		h.Body = NormalizeSequence(m.Compiled, false)
	}
	return h
}

// NormalizeClass freezes a class declaration with every member. Members keep
// declaration order; constructors come before methods.
func NormalizeClass(c *ast.Class) *HClass {
	b := c.Base()
	h := &HClass{
		Name:  b.InternalName(),
		Flags: uint32(b.Modifiers),
	}
	if b.Super != nil {
		h.Super = b.Super.InternalName()
	}
	for _, i := range b.Interfaces {
		h.Interfaces = append(h.Interfaces, i.InternalName())
	}
	for _, f := range b.Fields {
		h.Fields = append(h.Fields, HField{Name: f.Name, Desc: f.Type.Descriptor(), Flags: uint32(f.Modifiers)})
	}
	for _, m := range b.Constructors {
		h.Methods = append(h.Methods, NormalizeMethod(m))
	}
	for _, m := range b.Methods {
		h.Methods = append(h.Methods, NormalizeMethod(m))
	}
	return h
}
