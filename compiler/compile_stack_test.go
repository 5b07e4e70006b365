package compiler

import (
	"strings"
	"testing"

	"github.com/chazu/groovypp/ast"
)

func TestCompileStackSlots(t *testing.T) {
	cs, err := NewCompileStack(false, []*ast.Param{
		param("a", ast.IntType),
		param("b", ast.LongType),
		param("c", ast.ObjectType),
	})
	if err != nil {
		t.Fatalf("NewCompileStack: %v", err)
	}
	want := map[string]int{"a": 1, "b": 2, "c": 4}
	for name, slot := range want {
		v := cs.Lookup(name)
		if v == nil {
			t.Fatalf("%s not bound", name)
		}
		if v.Slot != slot {
			t.Errorf("%s slot = %d, want %d", name, v.Slot, slot)
		}
	}
	if got := cs.MaxLocals(); got != 5 {
		t.Errorf("MaxLocals = %d, want 5", got)
	}
}

func TestCompileStackStaticStartsAtZero(t *testing.T) {
	cs, err := NewCompileStack(true, []*ast.Param{param("d", ast.DoubleType)})
	if err != nil {
		t.Fatalf("NewCompileStack: %v", err)
	}
	if v := cs.Lookup("d"); v.Slot != 0 {
		t.Errorf("slot = %d, want 0", v.Slot)
	}
	if got := cs.Temp(ast.IntType); got != 2 {
		t.Errorf("temp slot = %d, want 2", got)
	}
}

func TestCompileStackScopes(t *testing.T) {
	cs, _ := NewCompileStack(true, nil)
	if _, err := cs.Define("x", ast.IntType); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if _, err := cs.Define("x", ast.IntType); err == nil {
		t.Error("redefinition in the same scope was accepted")
	}

	cs.PushScope()
	inner, err := cs.Define("x", ast.LongType)
	if err != nil {
		t.Fatalf("shadowing: %v", err)
	}
	if cs.Lookup("x") != inner {
		t.Error("inner binding does not shadow the outer one")
	}
	cs.PopScope()

	if v := cs.Lookup("x"); v.Type != ast.IntType {
		t.Errorf("after PopScope x is %v, want int", v.Type)
	}
	if got := cs.Temp(ast.IntType); got != 1 {
		t.Errorf("slot after PopScope = %d, want 1 (inner slots freed)", got)
	}
	if got := cs.MaxLocals(); got != 3 {
		t.Errorf("MaxLocals = %d, want 3", got)
	}
}

func TestCompileStackJumpTargets(t *testing.T) {
	cs, _ := NewCompileStack(true, nil)

	if _, err := cs.breakTarget(""); err == nil || !strings.Contains(err.Error(), "outside") {
		t.Errorf("break with no loop: err = %v", err)
	}
	if _, err := cs.continueTarget(""); err == nil {
		t.Error("continue with no loop was accepted")
	}

	outerBrk, outerCont := cs.PushLoop("outer")
	switchBrk := cs.PushSwitch()

	f, err := cs.breakTarget("")
	if err != nil || f.brk != switchBrk {
		t.Errorf("unlabeled break should leave the switch")
	}
	f, err = cs.continueTarget("")
	if err != nil || f.cont != outerCont {
		t.Errorf("continue should skip the switch and reach the loop")
	}
	f, err = cs.breakTarget("outer")
	if err != nil || f.brk != outerBrk {
		t.Errorf("labeled break should reach the outer loop")
	}
	if _, err := cs.breakTarget("missing"); err == nil || !strings.Contains(err.Error(), "missing") {
		t.Errorf("unknown label: err = %v", err)
	}

	cs.PopFrame()
	cs.PopFrame()
	if _, err := cs.breakTarget(""); err == nil {
		t.Error("frames were not popped")
	}
}

func TestCompileStackFinallyDepth(t *testing.T) {
	cs, _ := NewCompileStack(true, nil)
	cs.pushFinally(func() {})
	cs.PushLoop("")
	cs.pushFinally(func() {})

	f, err := cs.breakTarget("")
	if err != nil {
		t.Fatalf("breakTarget: %v", err)
	}
	if f.finallies != 1 {
		t.Errorf("loop records %d enclosing finally blocks, want 1", f.finallies)
	}
	if !cs.HasFinally() {
		t.Error("HasFinally = false")
	}
	cs.popFinally()
	cs.popFinally()
	if cs.HasFinally() {
		t.Error("HasFinally = true after popping every block")
	}
}
