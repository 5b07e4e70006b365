package compiler

import (
	"fmt"

	"github.com/chazu/groovypp/ast"
)

// ---------------------------------------------------------------------------
// Verifier: checks run on a class before and after lowering
// ---------------------------------------------------------------------------

// Verifier accumulates problems found in one class.
type Verifier struct {
	class *ast.Class
	diags []*Diagnostic
}

// NewVerifier creates a verifier for c.
func NewVerifier(c *ast.Class) *Verifier {
	return &Verifier{class: c}
}

// Diagnostics returns what the verifier found.
func (v *Verifier) Diagnostics() []*Diagnostic {
	return v.diags
}

func (v *Verifier) add(sev Severity, m *ast.Method, line int, format string, args ...any) {
	name := ""
	if m != nil {
		name = m.Name
	}
	v.diags = append(v.diags, &Diagnostic{
		Severity: sev,
		Class:    v.class.Name,
		Method:   name,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

// CheckAbstract reports abstract members a concrete class does not
// implement.
func (v *Verifier) CheckAbstract() {
	if v.class.IsAbstract() || v.class.IsInterface() {
		return
	}
	for _, m := range v.class.AbstractMethods() {
		if objectMethod(m) {
			continue
		}
		v.add(Error, nil, 0, "class must implement abstract method %s%s from %s", m.Name, m.Descriptor(), m.Owner.Name)
	}
}

// CheckMethod walks a method body for statements that can never run.
func (v *Verifier) CheckMethod(m *ast.Method) {
	if m.Code != nil {
		v.checkStmt(m, m.Code)
	}
}

func (v *Verifier) checkStmt(m *ast.Method, s ast.Stmt) {
	switch st := s.(type) {
	case *ast.Block:
		v.checkUnreachable(m, st.Stmts)
		for _, inner := range st.Stmts {
			v.checkStmt(m, inner)
		}
	case *ast.If:
		v.checkStmt(m, st.Then)
		v.checkStmt(m, st.Else)
	case *ast.While:
		v.checkStmt(m, st.Body)
	case *ast.For:
		v.checkStmt(m, st.Body)
	case *ast.ForIn:
		v.checkStmt(m, st.Body)
	case *ast.Switch:
		for _, c := range st.Cases {
			v.checkStmt(m, c.Body)
		}
		v.checkStmt(m, st.Default)
	case *ast.Try:
		v.checkStmt(m, st.Body)
		for _, c := range st.Catches {
			v.checkStmt(m, c.Body)
		}
		v.checkStmt(m, st.Finally)
	case *ast.Synchronized:
		v.checkStmt(m, st.Body)
	}
}

// checkUnreachable warns once per block about code after a jump.
func (v *Verifier) checkUnreachable(m *ast.Method, stmts []ast.Stmt) {
	for i, s := range stmts[:max(len(stmts)-1, 0)] {
		switch s.(type) {
		case *ast.Return, *ast.Throw, *ast.Break, *ast.Continue:
			v.add(Warning, m, stmts[i+1].Pos(), "unreachable code")
			return
		}
	}
}

// Verify runs every check on c and returns the findings.
func Verify(c *ast.Class) []*Diagnostic {
	v := NewVerifier(c)
	v.CheckAbstract()
	for _, m := range c.Methods {
		v.CheckMethod(m)
	}
	for _, m := range c.Constructors {
		v.CheckMethod(m)
	}
	return v.Diagnostics()
}

func (c *Compiler) verifyClass(cls *ast.Class) {
	for _, d := range Verify(cls) {
		c.diags.Add(d)
	}
}
