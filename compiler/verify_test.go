package compiler

import (
	"strings"
	"testing"

	"github.com/chazu/groovypp/ast"
)

func TestVerifyMissingAbstract(t *testing.T) {
	runnable := ast.NewInterface("demo.Runnable")
	runnable.AddMethod("run", ast.ModPublic|ast.ModAbstract, ast.VoidType, nil, nil)
	runnable.AddMethod("equals", ast.ModPublic|ast.ModAbstract, ast.BooleanType, []*ast.Param{param("o", ast.ObjectType)}, nil)

	impl := ast.NewClass("demo.Impl", ast.ModPublic, ast.ObjectType, runnable)
	diags := Verify(impl)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	d := diags[0]
	if d.Severity != Error || !strings.Contains(d.Message, "run()V") || !strings.Contains(d.Message, "demo.Runnable") {
		t.Errorf("diagnostic = %v", d)
	}

	impl.AddMethod("run", ast.ModPublic, ast.VoidType, nil, block())
	if diags := Verify(impl); len(diags) != 0 {
		t.Errorf("implemented class still reported: %v", diags)
	}

	abstract := ast.NewClass("demo.Base", ast.ModPublic|ast.ModAbstract, ast.ObjectType, runnable)
	if diags := Verify(abstract); len(diags) != 0 {
		t.Errorf("abstract class reported: %v", diags)
	}
}

func TestVerifyUnreachable(t *testing.T) {
	cls := ast.NewClass("demo.Flow", ast.ModPublic, ast.ObjectType)
	cls.AddMethod("early", ast.ModPublic, ast.VoidType, nil, block(
		&ast.If{
			Cond: &ast.Const{Value: true, Typ: ast.BooleanType},
			Then: block(
				&ast.Return{Position: ast.Position{Line: 3}},
				&ast.ExprStmt{Position: ast.Position{Line: 4}, X: intConst(1)},
				&ast.ExprStmt{Position: ast.Position{Line: 5}, X: intConst(2)},
			),
		},
	))
	diags := Verify(cls)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	if d := diags[0]; d.Severity != Warning || d.Line != 4 || d.Method != "early" {
		t.Errorf("diagnostic = %v", d)
	}
}
