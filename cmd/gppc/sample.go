package main

import "github.com/chazu/groovypp/ast"

func intConst(n int) *ast.Const { return &ast.Const{Value: n, Typ: ast.IntType} }

func ref(name string, typ *ast.Class) *ast.VarRef { return &ast.VarRef{Name: name, Typ: typ} }

func block(stmts ...ast.Stmt) *ast.Block { return &ast.Block{Stmts: stmts} }

// sampleModule builds the typed program gppc compiles: a class with loop,
// string, inferred-return and closure methods plus a one-method interface
// its closures are coerced to.
func sampleModule(pkg, className string) *ast.Module {
	if className == "" {
		className = "Main"
	}
	qualify := func(n string) string {
		if pkg == "" {
			return n
		}
		return pkg + "." + n
	}
	mod := ast.NewModule(pkg)

	intOp := ast.NewInterface(qualify("IntOp"))
	intOp.AddMethod("apply", ast.ModPublic|ast.ModAbstract, ast.IntType,
		[]*ast.Param{{Name: "x", Type: ast.IntType}}, nil)

	host := ast.NewClass(qualify(className), ast.ModPublic, ast.ObjectType)
	host.AddConstructor(ast.ModPublic, nil, block(&ast.ExprStmt{X: &ast.SuperInit{}}))

	// static int sum(int n) { int total = 0; for (i in 1..n) total = total + i; return total }
	total := ref("total", ast.IntType)
	host.AddMethod("sum", ast.ModPublic|ast.ModStatic, ast.IntType,
		[]*ast.Param{{Name: "n", Type: ast.IntType}},
		block(
			&ast.ExprStmt{X: &ast.Decl{Name: "total", Typ: ast.IntType, Init: intConst(0)}},
			&ast.ForIn{
				Var:        &ast.Param{Name: "i", Type: ast.IntType},
				Collection: &ast.Range{From: intConst(1), To: ref("n", ast.IntType)},
				Body: &ast.ExprStmt{X: &ast.Assign{
					Target: total,
					Value:  &ast.Binary{Op: ast.OpAdd, Left: total, Right: ref("i", ast.IntType), Typ: ast.IntType},
				}},
			},
			&ast.Return{X: total},
		))

	// static String greet(String who) { "Hello, " + who }
	host.AddMethod("greet", ast.ModPublic|ast.ModStatic, ast.StringType,
		[]*ast.Param{{Name: "who", Type: ast.StringType}},
		block(&ast.Return{X: &ast.Binary{
			Op:    ast.OpAdd,
			Left:  &ast.Const{Value: "Hello, ", Typ: ast.StringType},
			Right: ref("who", ast.StringType),
			Typ:   ast.StringType,
		}}))

	// static answer() { 42 }  (return type inferred)
	host.AddMethod("answer", ast.ModPublic|ast.ModStatic, ast.ImproveType, nil,
		block(&ast.Return{X: intConst(42)}))

	// IntOp constant() { x -> 7 }
	host.AddMethod("constant", ast.ModPublic, intOp, nil,
		block(&ast.Return{X: &ast.Closure{
			Params: []*ast.Param{{Name: "x", Type: ast.ObjectType}},
			Code:   block(&ast.Return{X: intConst(7)}),
			Target: intOp,
		}}))

	// Closure counter() { int n = 5; { -> n } }
	host.AddMethod("counter", ast.ModPublic, ast.ClosureType, nil,
		block(
			&ast.ExprStmt{X: &ast.Decl{Name: "n", Typ: ast.IntType, Init: intConst(5)}},
			&ast.Return{X: &ast.Closure{
				Code:       block(&ast.Return{X: ref("n", ast.IntType)}),
				Referenced: []string{"n"},
			}},
		))

	mod.AddClass(intOp)
	mod.AddClass(host)
	return mod
}
