package asm

import (
	"reflect"
	"testing"
)

func optimize(s Stages, insns ...Insn) []Insn {
	rec := NewRecorder()
	mv := NewOptimizer(rec, s)
	Emit(mv, insns...)
	mv.VisitEnd()
	return rec.Sequence().Insns
}

func assertInsns(t *testing.T, got, want []Insn) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got:\n%s\nwant:\n%s", listing(got), listing(want))
	}
}

func listing(insns []Insn) string {
	return Disassemble(&Sequence{Insns: insns})
}

func TestDupStorePopBecomesStore(t *testing.T) {
	tests := []struct {
		name  string
		store Insn
		dup   Opcode
		pop   Opcode
	}{
		{"local int", Var(ISTORE, 1), DUP, POP},
		{"local ref", Var(ASTORE, 3), DUP, POP},
		{"local long", Var(LSTORE, 2), DUP2, POP2},
		{"static field", FieldOp(PUTSTATIC, "Foo", "x", "I"), DUP, POP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := optimize(Stages{DupStore: true}, Op(tt.dup), tt.store, Op(tt.pop))
			assertInsns(t, got, []Insn{tt.store})
		})
	}
}

func TestDupStoreFlushedBeforeLabel(t *testing.T) {
	l := NewLabel()
	in := []Insn{Op(DUP), Var(ISTORE, 1), Mark(l)}
	got := optimize(Stages{DupStore: true}, in...)
	assertInsns(t, got, in)
}

func TestDupStoreFlushedBeforeBoundaries(t *testing.T) {
	l := NewLabel()
	boundaries := []Insn{
		Jump(GOTO, l),
		Invoke(INVOKEVIRTUAL, "Foo", "bar", "()V"),
		TypeOp(CHECKCAST, "java/lang/String"),
		Line(4, l),
		TryCatch(l, l, l, ""),
		Op(DUP2),
	}
	for _, b := range boundaries {
		in := []Insn{Op(DUP), Var(ASTORE, 2), b}
		assertInsns(t, optimize(Stages{DupStore: true}, in...), in)
	}
}

func TestDupStoreNeverHoldsArrayStores(t *testing.T) {
	in := []Insn{Op(DUP), Op(IASTORE), Op(POP)}
	got := optimize(Stages{DupStore: true}, in...)
	assertInsns(t, got, in)
}

func TestDupStoreIgnoresInstanceFieldStore(t *testing.T) {
	in := []Insn{Op(DUP), FieldOp(PUTFIELD, "Foo", "x", "I"), Op(POP)}
	got := optimize(Stages{DupStore: true}, in...)
	assertInsns(t, got, in)
}

func TestDupPopWithoutStorePassesThrough(t *testing.T) {
	in := []Insn{Op(DUP), Op(POP)}
	got := optimize(Stages{DupStore: true}, in...)
	assertInsns(t, got, in)
}

func TestDupStoreFlushedAtEnd(t *testing.T) {
	in := []Insn{Op(DUP), Var(ISTORE, 1)}
	got := optimize(Stages{DupStore: true}, in...)
	assertInsns(t, got, in)
}

func TestBoxingRemover(t *testing.T) {
	box := Invoke(INVOKESTATIC, "java/lang/Integer", "valueOf", "(I)Ljava/lang/Integer;")
	boxLong := Invoke(INVOKESTATIC, "java/lang/Long", "valueOf", "(J)Ljava/lang/Long;")
	unbox := Invoke(INVOKESTATIC, "org/codehaus/groovy/runtime/typehandling/DefaultTypeTransformation", "intUnbox", "(Ljava/lang/Object;)I")
	intValue := Invoke(INVOKEVIRTUAL, "java/lang/Integer", "intValue", "()I")
	longUnbox := Invoke(INVOKESTATIC, "org/codehaus/groovy/runtime/typehandling/DefaultTypeTransformation", "longUnbox", "(Ljava/lang/Object;)J")

	tests := []struct {
		name string
		in   []Insn
		want []Insn
	}{
		{"box unbox", []Insn{Var(ILOAD, 1), box, unbox}, []Insn{Var(ILOAD, 1)}},
		{"box value", []Insn{Var(ILOAD, 1), box, intValue}, []Insn{Var(ILOAD, 1)}},
		{"box pop", []Insn{Var(ILOAD, 1), box, Op(POP)}, []Insn{Var(ILOAD, 1), Op(POP)}},
		{"box long pop", []Insn{Var(LLOAD, 1), boxLong, Op(POP)}, []Insn{Var(LLOAD, 1), Op(POP2)}},
		{"mismatched unbox", []Insn{Var(ILOAD, 1), box, longUnbox}, []Insn{Var(ILOAD, 1), box, longUnbox}},
		{"box store", []Insn{Var(ILOAD, 1), box, Var(ASTORE, 2)}, []Insn{Var(ILOAD, 1), box, Var(ASTORE, 2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertInsns(t, optimize(Stages{Boxing: true}, tt.in...), tt.want)
		})
	}
}

func TestLoadPopRemover(t *testing.T) {
	tests := []struct {
		name string
		in   []Insn
		want []Insn
	}{
		{"aload pop", []Insn{Var(ALOAD, 0), Op(POP)}, nil},
		{"lload pop2", []Insn{Var(LLOAD, 1), Op(POP2)}, nil},
		{"lload pop", []Insn{Var(LLOAD, 1), Op(POP)}, []Insn{Var(LLOAD, 1), Op(POP)}},
		{"ldc pop", []Insn{Ldc("x"), Op(POP)}, nil},
		{"iconst pop", []Insn{Op(ICONST_1), Op(POP)}, nil},
		{"call pop", []Insn{Invoke(INVOKESTATIC, "A", "f", "()I"), Op(POP)}, []Insn{Invoke(INVOKESTATIC, "A", "f", "()I"), Op(POP)}},
		{"two loads", []Insn{Var(ILOAD, 1), Var(ILOAD, 2), Op(POP)}, []Insn{Var(ILOAD, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertInsns(t, optimize(Stages{LoadPop: true}, tt.in...), tt.want)
		})
	}
}

func TestChainFoldsAssignmentStatement(t *testing.T) {
	// x = y as an expression statement: load, dup, store, pop
	got := optimize(AllStages, Var(ILOAD, 2), Op(DUP), Var(ISTORE, 1), Op(POP), Op(RETURN))
	assertInsns(t, got, []Insn{Var(ILOAD, 2), Var(ISTORE, 1), Op(RETURN)})
}

func TestNoStagesIsIdentity(t *testing.T) {
	rec := NewRecorder()
	if mv := NewOptimizer(rec, Stages{}); mv != MethodVisitor(rec) {
		t.Fatalf("expected recorder to be returned unchanged")
	}
}

func TestEndIsForwarded(t *testing.T) {
	rec := NewRecorder()
	mv := NewOptimizer(rec, AllStages)
	mv.VisitMaxs(2, 3)
	mv.VisitEnd()
	if !rec.Ended() {
		t.Fatal("VisitEnd not forwarded")
	}
	if seq := rec.Sequence(); seq.MaxStack != 2 || seq.MaxLocals != 3 {
		t.Errorf("maxs = %d/%d, want 2/3", seq.MaxStack, seq.MaxLocals)
	}
}
