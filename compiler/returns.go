package compiler

import "github.com/chazu/groovypp/ast"

// addReturnIfNeeded makes the value of the last expression statement on
// every path the method's result. The tree is copied along the rewritten
// path; the input is left untouched.
func addReturnIfNeeded(s ast.Stmt) ast.Stmt {
	switch st := s.(type) {
	case *ast.Block:
		if len(st.Stmts) == 0 {
			return st
		}
		out := *st
		out.Stmts = append([]ast.Stmt(nil), st.Stmts...)
		out.Stmts[len(out.Stmts)-1] = addReturnIfNeeded(out.Stmts[len(out.Stmts)-1])
		return &out
	case *ast.ExprStmt:
		return &ast.Return{Position: st.Position, X: st.X}
	case *ast.If:
		out := *st
		out.Then = addReturnIfNeeded(st.Then)
		if st.Else != nil {
			out.Else = addReturnIfNeeded(st.Else)
		}
		return &out
	case *ast.Try:
		out := *st
		out.Body = addReturnIfNeeded(st.Body)
		out.Catches = make([]*ast.Catch, len(st.Catches))
		for i, c := range st.Catches {
			cc := *c
			cc.Body = addReturnIfNeeded(c.Body)
			out.Catches[i] = &cc
		}
		return &out
	case *ast.Synchronized:
		out := *st
		out.Body = addReturnIfNeeded(st.Body)
		return &out
	}
	return s
}
