package asm

import "sync/atomic"

// Label marks a position in the instruction stream.
type Label struct {
	id uint64
}

var labelSeq atomic.Uint64

// NewLabel returns a fresh label.
func NewLabel() *Label { return &Label{id: labelSeq.Add(1)} }

// ID is unique per process; printers renumber labels per method.
func (l *Label) ID() uint64 { return l.id }

// InsnKind selects which MethodVisitor call an Insn replays as.
type InsnKind uint8

const (
	KindInsn InsnKind = iota
	KindInt
	KindVar
	KindType
	KindField
	KindMethod
	KindJump
	KindLabel
	KindLdc
	KindIinc
	KindTableSwitch
	KindLookupSwitch
	KindMultiANewArray
	KindTryCatch
	KindLine
	KindMaxs
)

// Insn is one instruction as plain data. Only the fields relevant to Kind
// are set.
type Insn struct {
	Kind InsnKind
	Op   Opcode

	// Arg is the int operand, slot, dimension count, line number, max stack
	// or switch minimum.
	Arg int
	// Arg2 is the iinc increment, max locals or switch maximum.
	Arg2 int

	// Owner holds the type operand, field/method owner or caught type.
	Owner string
	Name  string
	Desc  string
	Const any

	// Label is the jump target, placed label, switch default, protected
	// range start or line start.
	Label   *Label
	End     *Label
	Handler *Label
	Labels  []*Label
	Keys    []int
}

func Op(op Opcode) Insn                 { return Insn{Kind: KindInsn, Op: op} }
func IntOp(op Opcode, n int) Insn       { return Insn{Kind: KindInt, Op: op, Arg: n} }
func Var(op Opcode, slot int) Insn      { return Insn{Kind: KindVar, Op: op, Arg: slot} }
func TypeOp(op Opcode, typ string) Insn { return Insn{Kind: KindType, Op: op, Owner: typ} }
func Jump(op Opcode, l *Label) Insn     { return Insn{Kind: KindJump, Op: op, Label: l} }
func Mark(l *Label) Insn                { return Insn{Kind: KindLabel, Label: l} }
func Ldc(v any) Insn                    { return Insn{Kind: KindLdc, Op: LDC, Const: v} }
func Iinc(slot, incr int) Insn          { return Insn{Kind: KindIinc, Op: IINC, Arg: slot, Arg2: incr} }
func Line(line int, start *Label) Insn  { return Insn{Kind: KindLine, Arg: line, Label: start} }

func FieldOp(op Opcode, owner, name, desc string) Insn {
	return Insn{Kind: KindField, Op: op, Owner: owner, Name: name, Desc: desc}
}

func Invoke(op Opcode, owner, name, desc string) Insn {
	return Insn{Kind: KindMethod, Op: op, Owner: owner, Name: name, Desc: desc}
}

func TryCatch(start, end, handler *Label, typ string) Insn {
	return Insn{Kind: KindTryCatch, Label: start, End: end, Handler: handler, Owner: typ}
}

// Accept replays the record on mv.
func (in Insn) Accept(mv MethodVisitor) {
	switch in.Kind {
	case KindInsn:
		mv.VisitInsn(in.Op)
	case KindInt:
		mv.VisitIntInsn(in.Op, in.Arg)
	case KindVar:
		mv.VisitVarInsn(in.Op, in.Arg)
	case KindType:
		mv.VisitTypeInsn(in.Op, in.Owner)
	case KindField:
		mv.VisitFieldInsn(in.Op, in.Owner, in.Name, in.Desc)
	case KindMethod:
		mv.VisitMethodInsn(in.Op, in.Owner, in.Name, in.Desc)
	case KindJump:
		mv.VisitJumpInsn(in.Op, in.Label)
	case KindLabel:
		mv.VisitLabel(in.Label)
	case KindLdc:
		mv.VisitLdcInsn(in.Const)
	case KindIinc:
		mv.VisitIincInsn(in.Arg, in.Arg2)
	case KindTableSwitch:
		mv.VisitTableSwitchInsn(in.Arg, in.Arg2, in.Label, in.Labels...)
	case KindLookupSwitch:
		mv.VisitLookupSwitchInsn(in.Label, in.Keys, in.Labels)
	case KindMultiANewArray:
		mv.VisitMultiANewArrayInsn(in.Desc, in.Arg)
	case KindTryCatch:
		mv.VisitTryCatchBlock(in.Label, in.End, in.Handler, in.Owner)
	case KindLine:
		mv.VisitLineNumber(in.Arg, in.Label)
	case KindMaxs:
		mv.VisitMaxs(in.Arg, in.Arg2)
	}
}

// Emit replays insns on mv in order.
func Emit(mv MethodVisitor, insns ...Insn) {
	for _, in := range insns {
		in.Accept(mv)
	}
}

// IsWidePush reports whether the instruction pushes a two-slot value
// without side effects.
func (in Insn) IsWidePush() bool {
	if in.Kind == KindLdc {
		switch in.Const.(type) {
		case int64, float64:
			return true
		}
		return false
	}
	return in.Op.IsWideLoad()
}
