package asm

import (
	"testing"

	"golang.org/x/tools/txtar"
)

func golden(t *testing.T, name string) string {
	t.Helper()
	ar, err := txtar.ParseFile("testdata/printer.txtar")
	if err != nil {
		t.Fatalf("parse golden: %v", err)
	}
	for _, f := range ar.Files {
		if f.Name == name {
			return string(f.Data)
		}
	}
	t.Fatalf("no golden section %q", name)
	return ""
}

func TestPrinterBranch(t *testing.T) {
	l0, l1 := NewLabel(), NewLabel()
	seq := &Sequence{Insns: []Insn{
		Mark(l0),
		Line(3, l0),
		Var(ILOAD, 1),
		Jump(IFEQ, l1),
		Ldc("hi"),
		Invoke(INVOKESTATIC, "A", "p", "(Ljava/lang/String;)V"),
		Mark(l1),
		Op(RETURN),
		TryCatch(l0, l1, l1, ""),
	}}
	if got, want := DisassembleWithName("A.run", seq), golden(t, "branch"); got != want {
		t.Errorf("listing mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrinterOperands(t *testing.T) {
	a, b, d := NewLabel(), NewLabel(), NewLabel()
	seq := &Sequence{Insns: []Insn{
		Var(ALOAD, 0),
		FieldOp(GETFIELD, "A", "x", "I"),
		Iinc(1, -1),
		Ldc(int64(7)),
		{Kind: KindLookupSwitch, Op: LOOKUPSWITCH, Label: d, Keys: []int{1, 5}, Labels: []*Label{a, b}},
	}}
	if got, want := Disassemble(seq), golden(t, "fields"); got != want {
		t.Errorf("listing mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestSequenceOpsSkipsPseudoInsns(t *testing.T) {
	l := NewLabel()
	seq := &Sequence{Insns: []Insn{Mark(l), Line(1, l), Op(ICONST_0), Op(IRETURN)}}
	ops := seq.Ops()
	if len(ops) != 2 || ops[0] != ICONST_0 || ops[1] != IRETURN {
		t.Fatalf("Ops() = %v", ops)
	}
}

func TestReplayRoundTrip(t *testing.T) {
	l := NewLabel()
	src := &Sequence{Insns: []Insn{Var(ALOAD, 0), Jump(IFNULL, l), Mark(l), Op(RETURN)}, MaxStack: 1, MaxLocals: 1}
	rec := NewRecorder()
	src.Replay(rec)
	if Disassemble(rec.Sequence()) != Disassemble(src) {
		t.Fatalf("replay changed the body")
	}
	if rec.Sequence().MaxLocals != 1 || !rec.Ended() {
		t.Fatalf("maxs or end not replayed")
	}
}
