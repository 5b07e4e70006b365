package compiler

import (
	"testing"

	"github.com/chazu/groovypp/ast"
)

func names(ms []*ast.Method) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func TestIsOneMethodAbstract(t *testing.T) {
	abstract := ast.ModPublic | ast.ModAbstract

	two := ast.NewInterface("demo.Two")
	two.AddMethod("run", abstract, ast.VoidType, nil, nil)
	two.AddMethod("stop", abstract, ast.VoidType, nil, nil)

	accessor := ast.NewInterface("demo.Accessor")
	accessor.AddMethod("getName", abstract, ast.StringType, nil, nil)
	accessor.AddMethod("setName", abstract, ast.VoidType, []*ast.Param{param("n", ast.StringType)}, nil)
	accessor.AddMethod("run", abstract, ast.VoidType, nil, nil)

	getterOnly := ast.NewInterface("demo.Supplier")
	getterOnly.AddMethod("getValue", abstract, ast.ObjectType, nil, nil)

	comparator := ast.NewInterface("demo.Comparator")
	comparator.AddMethod("compare", abstract, ast.IntType, []*ast.Param{param("a", ast.ObjectType), param("b", ast.ObjectType)}, nil)
	comparator.AddMethod("equals", abstract, ast.BooleanType, []*ast.Param{param("o", ast.ObjectType)}, nil)

	task := ast.NewClass("demo.Task", abstract, ast.ObjectType)
	task.AddMethod("execute", abstract, ast.VoidType, nil, nil)
	task.AddMethod("describe", ast.ModPublic, ast.StringType, nil, block())

	concrete := ast.NewClass("demo.Plain", ast.ModPublic, ast.ObjectType)

	tests := []struct {
		name string
		typ  *ast.Class
		want []string
	}{
		{"two abstract methods", two, nil},
		{"accessors follow the abstract method", accessor, []string{"run", "getName", "setName"}},
		{"lone getter", getterOnly, []string{"getValue"}},
		{"object methods ignored", comparator, []string{"compare", "equals"}},
		{"abstract class", task, []string{"execute"}},
		{"concrete class", concrete, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(IsOneMethodAbstract(tt.typ))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestIsOneMethodAbstractTracksMutation(t *testing.T) {
	iface := ast.NewInterface("demo.Growing")
	iface.AddMethod("run", ast.ModPublic|ast.ModAbstract, ast.VoidType, nil, nil)

	first := IsOneMethodAbstract(iface)
	if len(first) != 1 {
		t.Fatalf("got %v, want [run]", names(first))
	}
	again := IsOneMethodAbstract(iface)
	if &again[0] != &first[0] {
		t.Error("unchanged class was classified twice")
	}

	iface.AddMethod("stop", ast.ModPublic|ast.ModAbstract, ast.VoidType, nil, nil)
	if got := IsOneMethodAbstract(iface); got != nil {
		t.Errorf("after adding a second method got %v, want nil", names(got))
	}
}

func TestIsOneMethodAbstractParameterized(t *testing.T) {
	mapper := ast.NewInterface("demo.Mapper")
	mapper.GenericParams = []*ast.GenericParam{{Name: "T"}}
	mapper.AddMethod("map", ast.ModPublic|ast.ModAbstract, ast.TypeVar("T"), []*ast.Param{param("v", ast.TypeVar("T"))}, nil)

	got := IsOneMethodAbstract(ast.Parameterize(mapper, ast.StringType))
	if len(got) != 1 || got[0].Name != "map" {
		t.Errorf("got %v, want [map]", names(got))
	}
}
