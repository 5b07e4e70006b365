package compiler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
)

func TestReturnTypeInference(t *testing.T) {
	f := newFixture()
	five := f.host.AddMethod("five", ast.ModPublic|ast.ModStatic, ast.ImproveType, nil,
		block(&ast.ExprStmt{X: intConst(5)}))
	c := f.compile(t, five)
	noErrors(t, c)

	if five.Return != ast.IntType {
		t.Errorf("inferred %v, want int", five.Return)
	}
	checkOps(t, five.Compiled, asm.ICONST_5, asm.IRETURN)
}

func TestReturnTypeInferenceOnDemand(t *testing.T) {
	f := newFixture()
	five := f.host.AddMethod("five", ast.ModPublic|ast.ModStatic, ast.ImproveType, nil,
		block(&ast.Return{X: intConst(5)}))
	caller := f.host.AddMethod("caller", ast.ModPublic|ast.ModStatic, ast.IntType, nil,
		block(&ast.Return{X: &ast.Call{Method: five}}))

	c := f.compile(t, caller)
	noErrors(t, c)
	if five.Compiled == nil {
		t.Fatal("callee was not compiled ahead of the call site")
	}
	i := findInvoke(caller.Compiled, "five")
	if i < 0 || caller.Compiled.Insns[i].Desc != "()I" {
		t.Errorf("call site:\n%s", asm.Disassemble(caller.Compiled))
	}
	checkOps(t, caller.Compiled, asm.INVOKESTATIC, asm.IRETURN)
}

func TestReturnTypeInferenceJoins(t *testing.T) {
	tests := []struct {
		name  string
		types []*ast.Class
		want  *ast.Class
	}{
		{"empty", nil, ast.ObjectType},
		{"same primitive", []*ast.Class{ast.LongType, ast.LongType}, ast.LongType},
		{"mixed primitives", []*ast.Class{ast.IntType, ast.LongType}, ast.NumberType},
		{"null only", []*ast.Class{ast.NullType}, ast.ObjectType},
		{"null and string", []*ast.Class{ast.NullType, ast.StringType}, ast.StringType},
		{"void skipped", []*ast.Class{ast.VoidType, ast.IntType}, ast.IntegerWrapper},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferReturnType(tt.types); got.Base() != tt.want {
				t.Errorf("inferReturnType = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStubbedMethodLogsAndReturnsDefault(t *testing.T) {
	tests := []struct {
		ret  *ast.Class
		want []asm.Opcode
	}{
		{ast.VoidType, []asm.Opcode{asm.RETURN}},
		{ast.LongType, []asm.Opcode{asm.LCONST_0, asm.LRETURN}},
		{ast.StringType, []asm.Opcode{asm.ACONST_NULL, asm.ARETURN}},
		{ast.ImproveType, []asm.Opcode{asm.ACONST_NULL, asm.ARETURN}},
	}
	for _, tt := range tests {
		t.Run(tt.ret.Name, func(t *testing.T) {
			f := newFixture()
			m := f.host.AddMethod("broken", ast.ModPublic, tt.ret, []*ast.Param{param("x", ast.DoubleType)},
				block(&ast.DoWhile{Body: block(), Cond: &ast.Const{Value: true, Typ: ast.BooleanType}}))
			f.compile(t, m)
			if !m.Stubbed {
				t.Fatal("not stubbed")
			}
			checkOps(t, m.Compiled, tt.want...)
			if m.Compiled.MaxLocals != 3 {
				t.Errorf("MaxLocals = %d, want 3", m.Compiled.MaxLocals)
			}
		})
	}
}

func buildModule(classes, methods int) *ast.Module {
	mod := ast.NewModule("bulk")
	for i := 0; i < classes; i++ {
		cls := ast.NewClass(fmt.Sprintf("bulk.C%d", i), ast.ModPublic, ast.ObjectType)
		for j := 0; j < methods; j++ {
			cls.AddMethod(fmt.Sprintf("m%d", j), ast.ModPublic, ast.IntType, []*ast.Param{param("v", ast.IntType)},
				block(&ast.Return{X: &ast.Binary{Op: ast.OpMul, Left: ref("v", ast.IntType), Right: intConst(j), Typ: ast.IntType}}))
		}
		mod.AddClass(cls)
	}
	return mod
}

func TestCompileModuleConcurrent(t *testing.T) {
	mod := buildModule(16, 8)
	c := New(mod, Options{Stages: asm.AllStages, Workers: 4})
	if err := c.CompileModule(context.Background()); err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	for _, cls := range mod.Classes() {
		for _, m := range cls.Methods {
			if m.Compiled == nil {
				t.Errorf("%s.%s not compiled", cls.Name, m.Name)
				continue
			}
			checkOps(t, m.Compiled, asm.ILOAD, m.Compiled.Ops()[1], asm.IMUL, asm.IRETURN)
		}
	}
}

func TestCompileModuleInfersAcrossClasses(t *testing.T) {
	mod := ast.NewModule("cross")
	a := ast.NewClass("cross.A", ast.ModPublic, ast.ObjectType)
	b := ast.NewClass("cross.B", ast.ModPublic, ast.ObjectType)
	value := b.AddMethod("value", ast.ModPublic|ast.ModStatic, ast.ImproveType, nil, block(&ast.Return{X: intConst(7)}))
	use := a.AddMethod("use", ast.ModPublic|ast.ModStatic, ast.IntType, nil, block(&ast.Return{X: &ast.Call{Method: value}}))
	mod.AddClass(a)
	mod.AddClass(b)

	c := New(mod, DefaultOptions())
	if err := c.CompileModule(context.Background()); err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	if value.Return != ast.IntType {
		t.Errorf("B.value returns %v, want int", value.Return)
	}
	i := findInvoke(use.Compiled, "value")
	if i < 0 || use.Compiled.Insns[i].Owner != "cross/B" || use.Compiled.Insns[i].Desc != "()I" {
		t.Errorf("A.use:\n%s", asm.Disassemble(use.Compiled))
	}
}

func TestCompileModuleReportsErrors(t *testing.T) {
	mod := buildModule(3, 2)
	bad := mod.Classes()[1]
	bad.AddMethod("spin", ast.ModPublic, ast.VoidType, nil,
		block(&ast.DoWhile{Body: block(), Cond: &ast.Const{Value: true, Typ: ast.BooleanType}}))

	c := New(mod, DefaultOptions())
	err := c.CompileModule(context.Background())
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	for _, cls := range mod.Classes() {
		for _, m := range cls.Methods {
			if m.Compiled == nil {
				t.Errorf("%s.%s left uncompiled after an error elsewhere", cls.Name, m.Name)
			}
		}
	}
}

func TestCompileModuleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(buildModule(2, 1), DefaultOptions())
	if err := c.CompileModule(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
