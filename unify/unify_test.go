package unify

import (
	"testing"

	"github.com/chazu/groovypp/ast"
)

func TestBindBareVariable(t *testing.T) {
	T := ast.TypeVar("T")
	b := Unify([]*ast.Class{T}, []*ast.Class{ast.StringType})
	if b["T"] != ast.StringType {
		t.Fatalf("T = %v, want String", b["T"])
	}
}

func TestPrimitiveActualIsWrapped(t *testing.T) {
	T := ast.TypeVar("T")
	b := Unify([]*ast.Class{T}, []*ast.Class{ast.IntType})
	if b["T"] != ast.IntegerWrapper {
		t.Fatalf("T = %v, want Integer", b["T"])
	}
}

func TestWideningPrefersSuperclassChain(t *testing.T) {
	T := ast.TypeVar("T")
	b := Unify([]*ast.Class{T, T}, []*ast.Class{ast.IntegerWrapper, ast.LongWrapper})
	if b["T"] != ast.NumberType {
		t.Fatalf("T = %v, want Number", b["T"])
	}
}

func TestWideningFallsBackToInterfaces(t *testing.T) {
	T := ast.TypeVar("T")
	b := Unify([]*ast.Class{T, T}, []*ast.Class{ast.StringType, ast.IntegerWrapper})
	// String lists Serializable before Comparable; Integer reaches it
	// through Number.
	if b["T"] != ast.SerializableType {
		t.Fatalf("T = %v, want Serializable", b["T"])
	}
}

func TestWideningToObject(t *testing.T) {
	T := ast.TypeVar("T")
	unrelated := ast.NewClass("p.Unrelated", ast.ModPublic, ast.ObjectType)
	b := Unify([]*ast.Class{T, T}, []*ast.Class{unrelated, ast.IntegerWrapper})
	if b["T"] != ast.ObjectType {
		t.Fatalf("T = %v, want Object", b["T"])
	}
}

func TestLaterNarrowerActualKeepsBinding(t *testing.T) {
	T := ast.TypeVar("T")
	b := Unify([]*ast.Class{T, T}, []*ast.Class{ast.NumberType, ast.IntegerWrapper})
	if b["T"] != ast.NumberType {
		t.Fatalf("T = %v, want Number", b["T"])
	}
}

func TestNestedParameterizedFormal(t *testing.T) {
	E := ast.TypeVar("E")
	formal := ast.Parameterize(ast.IterableType, E)
	b := Unify([]*ast.Class{formal}, []*ast.Class{ast.IntRangeType})
	if b["E"] != ast.IntegerWrapper {
		t.Fatalf("E = %v, want Integer", b["E"])
	}
}

func TestNullAndMissingActualsStayUnbound(t *testing.T) {
	T, U := ast.TypeVar("T"), ast.TypeVar("U")
	vars := []*ast.GenericParam{{Name: "T"}, {Name: "U"}}
	got := InferTypeArguments(vars, []*ast.Class{T, U}, []*ast.Class{ast.NullType})
	if got[0] != ast.ObjectType || got[1] != ast.ObjectType {
		t.Fatalf("got %v, want [Object Object]", got)
	}
}

func TestSubstituteDefaultsFreeVariables(t *testing.T) {
	T, U := ast.TypeVar("T"), ast.TypeVar("U")
	m := ast.Parameterize(ast.ListType, ast.Parameterize(ast.IterableType, U))
	got := Substitute(ast.Parameterize(ast.ListType, T), ast.Bindings{"T": ast.StringType})
	if got.String() != "java.util.List<java.lang.String>" {
		t.Fatalf("got %v", got)
	}
	if got := Substitute(m, nil); got.String() != "java.util.List<java.lang.Iterable<java.lang.Object>>" {
		t.Fatalf("got %v", got)
	}
}

func TestUnifyIsIdempotent(t *testing.T) {
	T, E := ast.TypeVar("T"), ast.TypeVar("E")
	cases := []struct {
		name    string
		formals []*ast.Class
		actuals []*ast.Class
	}{
		{"single", []*ast.Class{T}, []*ast.Class{ast.StringType}},
		{"widened", []*ast.Class{T, T}, []*ast.Class{ast.IntegerWrapper, ast.DoubleWrapper}},
		{"interfaces", []*ast.Class{T, T}, []*ast.Class{ast.StringType, ast.LongWrapper}},
		{"nested", []*ast.Class{ast.Parameterize(ast.IterableType, E), T}, []*ast.Class{ast.IntRangeType, ast.IntType}},
		{"raw list", []*ast.Class{ast.Parameterize(ast.ListType, E)}, []*ast.Class{ast.ArrayListType}},
		{"array", []*ast.Class{ast.ArrayOf(T)}, []*ast.Class{ast.ArrayOf(ast.StringType)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first := Unify(tc.formals, tc.actuals)
			resolved := make([]*ast.Class, len(tc.formals))
			for i, f := range tc.formals {
				resolved[i] = Substitute(f, first)
			}
			second := Unify(tc.formals, resolved)
			if len(first) != len(second) {
				t.Fatalf("bindings changed: %v -> %v", first, second)
			}
			for k, v := range first {
				if !v.Equals(second[k]) {
					t.Errorf("%s: %v -> %v", k, v, second[k])
				}
			}
		})
	}
}
