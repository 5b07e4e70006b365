package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// Printer is a terminal sink rendering a textual listing. Labels are
// numbered L0, L1, ... in order of first mention.
type Printer struct {
	sb     strings.Builder
	labels map[*Label]int
}

// NewPrinter returns an empty printer.
func NewPrinter() *Printer { return &Printer{labels: make(map[*Label]int)} }

// String returns the listing so far.
func (p *Printer) String() string { return p.sb.String() }

// Lines returns the listing split into lines.
func (p *Printer) Lines() []string {
	s := strings.TrimRight(p.sb.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func (p *Printer) label(l *Label) string {
	if l == nil {
		return "<nil>"
	}
	n, ok := p.labels[l]
	if !ok {
		n = len(p.labels)
		p.labels[l] = n
	}
	return "L" + strconv.Itoa(n)
}

func (p *Printer) line(format string, args ...any) {
	p.sb.WriteString("    ")
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *Printer) VisitInsn(op Opcode)                 { p.line("%s", op) }
func (p *Printer) VisitIntInsn(op Opcode, operand int) { p.line("%s %d", op, operand) }
func (p *Printer) VisitVarInsn(op Opcode, slot int)    { p.line("%s %d", op, slot) }
func (p *Printer) VisitTypeInsn(op Opcode, typ string) { p.line("%s %s", op, typ) }
func (p *Printer) VisitJumpInsn(op Opcode, l *Label)   { p.line("%s %s", op, p.label(l)) }
func (p *Printer) VisitIincInsn(slot, incr int)        { p.line("IINC %d %d", slot, incr) }

func (p *Printer) VisitLabel(l *Label) {
	p.sb.WriteString("   ")
	p.sb.WriteString(p.label(l))
	p.sb.WriteByte('\n')
}

func (p *Printer) VisitLdcInsn(v any) {
	switch c := v.(type) {
	case string:
		p.line("LDC %q", c)
	case int64:
		p.line("LDC %dL", c)
	case float32:
		p.line("LDC %vF", c)
	case float64:
		p.line("LDC %vD", c)
	default:
		p.line("LDC %v", c)
	}
}

func (p *Printer) VisitFieldInsn(op Opcode, owner, name, desc string) {
	p.line("%s %s.%s : %s", op, owner, name, desc)
}

func (p *Printer) VisitMethodInsn(op Opcode, owner, name, desc string) {
	p.line("%s %s.%s %s", op, owner, name, desc)
}

func (p *Printer) VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label) {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = p.label(l)
	}
	p.line("TABLESWITCH %d..%d [%s] default: %s", min, max, strings.Join(names, " "), p.label(dflt))
}

func (p *Printer) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d: %s", k, p.label(labels[i]))
	}
	p.line("LOOKUPSWITCH [%s] default: %s", strings.Join(parts, ", "), p.label(dflt))
}

func (p *Printer) VisitMultiANewArrayInsn(desc string, dims int) {
	p.line("MULTIANEWARRAY %s %d", desc, dims)
}

func (p *Printer) VisitTryCatchBlock(start, end, handler *Label, typ string) {
	if typ == "" {
		typ = "null"
	}
	p.line("TRYCATCHBLOCK %s %s %s %s", p.label(start), p.label(end), p.label(handler), typ)
}

func (p *Printer) VisitLineNumber(line int, start *Label) {
	p.line("LINENUMBER %d %s", line, p.label(start))
}

func (p *Printer) VisitMaxs(maxStack, maxLocals int) {
	p.line("MAXSTACK = %d", maxStack)
	p.line("MAXLOCALS = %d", maxLocals)
}

func (p *Printer) VisitEnd() {}

// Disassemble renders seq without its maxs trailer.
func Disassemble(seq *Sequence) string {
	return DisassembleWithName("", seq)
}

// DisassembleWithName renders seq under a name header.
func DisassembleWithName(name string, seq *Sequence) string {
	p := NewPrinter()
	if name != "" {
		fmt.Fprintf(&p.sb, "; === %s ===\n", name)
	}
	if seq != nil {
		Emit(p, seq.Insns...)
	}
	return p.String()
}
