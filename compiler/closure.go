package compiler

import (
	"strings"

	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
	"github.com/chazu/groovypp/unify"
)

// ---------------------------------------------------------------------------
// Closure materialization
// ---------------------------------------------------------------------------

const (
	outerField   = "this$0"
	callMethod   = "doCall"
	traitSuffix  = "$TraitImpl"
	missingName  = "methodMissing"
	closureFlags = ast.ModPublic | ast.ModFinal | ast.ModSynthetic
)

// closure materializes a closure literal as a synthetic class and leaves a
// new instance on the stack. Lowering the same literal twice (a method body
// recompiled after return type inference) reuses the class and its
// diagnostics.
func (l *lowerer) closure(e *ast.Closure) {
	l.lineNumber(e)
	var mc *materialized
	if v, ok := l.c.closures.Load(e); ok {
		mc = v.(*materialized)
		l.diags = append(l.diags, mc.diags...)
	} else {
		n := len(l.diags)
		cls := l.materialize(e)
		mc = &materialized{cls: cls, diags: append([]*Diagnostic(nil), l.diags[n:]...)}
		l.c.closures.Store(e, mc)
	}
	l.instantiate(mc.cls)
}

// materialized is a closure class together with the problems found while
// building it, which every later lowering of the literal reports again.
type materialized struct {
	cls   *ast.Class
	diags []*Diagnostic
}

// staticContext reports whether the enclosing method has no outer instance
// to capture. Trait implementation methods receive it as their first
// parameter.
func (l *lowerer) staticContext() bool {
	return l.method.IsStatic() && !strings.HasSuffix(l.owner.Name, traitSuffix)
}

func (l *lowerer) outerType() *ast.Class {
	if l.staticContext() {
		return ast.ClassType
	}
	if l.method.IsStatic() && len(l.method.Params) > 0 {
		return l.method.Params[0].Type
	}
	return l.owner
}

func (l *lowerer) materialize(e *ast.Closure) *ast.Class {
	owner := l.owner
	cls := ast.NewClass(owner.NextClosureName(), closureFlags, ast.ClosureType, ast.GeneratedClosureType, ast.MissingMethodHandlerType)
	cls.Outer = owner.Base()

	params := make([]*ast.Param, len(e.Params))
	for i, p := range e.Params {
		params[i] = &ast.Param{Name: p.Name, Type: p.Type, Default: p.Default}
	}
	ret := e.Return
	if ret == nil {
		ret = ast.ImproveType
	}
	call := cls.AddMethod(callMethod, ast.ModPublic, ret, params, e.Code)
	call.Line = e.Line
	addDependents(cls, call)

	cls.AddField(outerField, ast.ModFinal, l.outerType())
	for _, name := range e.Referenced {
		if cls.DeclaredField(name) != nil {
			continue
		}
		if v := l.stack.Lookup(name); v != nil {
			cls.AddField(name, ast.ModFinal, v.Type)
		}
	}

	target := e.Target
	if target != nil && target.Base() != ast.ClosureType {
		one := IsOneMethodAbstract(target)
		switch {
		case one == nil:
			l.errorf(e, "cannot coerce closure to %s: it does not have exactly one abstract method", target)
		case l.c.isMatch(one, cls, target) == nil:
			l.errorf(e, "no matching abstract method in %s for closure", target)
		}
	}
	if call.Compiled == nil {
		l.c.ReplaceMethodCode(call)
	}

	l.addConstructor(cls)
	addMissingMethod(cls)
	MaterializeTraitMethods(cls)
	for _, m := range cls.Methods {
		if m.Compiled == nil && m.Code != nil {
			l.c.ReplaceMethodCode(m)
		}
	}

	l.c.module.AddClass(cls)
	l.c.verifyClass(cls)
	return cls
}

// addDependents adds an overload of the call method for every trailing run
// of parameters with default values. Each forwards to the master.
func addDependents(cls *ast.Class, master *ast.Method) {
	for k := len(master.Params) - 1; k >= 0 && master.Params[k].Default != nil; k-- {
		params := make([]*ast.Param, k)
		args := make([]ast.Expr, len(master.Params))
		for i, p := range master.Params {
			if i < k {
				params[i] = &ast.Param{Name: p.Name, Type: p.Type}
				args[i] = &ast.VarRef{Position: ast.Position{Line: master.Line}, Name: p.Name, Typ: p.Type}
			} else {
				args[i] = p.Default
			}
		}
		body := &ast.Block{Stmts: []ast.Stmt{&ast.Return{X: &ast.Call{Method: master, Args: args}}}}
		dep := cls.AddMethod(callMethod, ast.ModPublic, master.Return, params, body)
		dep.Master = master
		dep.Line = master.Line
		master.Dependents = append(master.Dependents, dep)
	}
}

// constructorParams lists the outer reference followed by every captured
// field that is initialized from outside.
func constructorParams(cls *ast.Class) []*ast.Param {
	var params []*ast.Param
	if f := cls.DeclaredField(outerField); f != nil {
		params = append(params, &ast.Param{Name: f.Name, Type: f.Type})
	}
	for _, f := range cls.Fields {
		if f.Name == outerField || f.NoExternalInit || f.IsStatic() {
			continue
		}
		params = append(params, &ast.Param{Name: f.Name, Type: f.Type})
	}
	return params
}

func (l *lowerer) addConstructor(cls *ast.Class) {
	params := constructorParams(cls)
	outer := &ast.VarRef{Name: outerField, Typ: params[0].Type}

	super := cls.Super.Base()
	superInit := &ast.SuperInit{}
	switch {
	case super == ast.ClosureType:
		superInit.Ctor = ast.ClosureType.Constructor(2)
		if l.staticContext() {
			superInit.Args = []ast.Expr{outer, &ast.ClassLit{Of: l.owner.OutermostClass()}}
		} else {
			superInit.Args = []ast.Expr{outer, outer}
		}
	default:
		superInit.Ctor = super.Constructor(0)
	}

	var fieldInit []asm.Insn
	em := record(&fieldInit)
	k := 1
	for _, p := range params {
		em.load(ast.ObjectType, 0)
		em.load(p.Type, k)
		k += width(p.Type)
		em.field(asm.PUTFIELD, cls.InternalName(), p.Name, p.Type.Descriptor())
	}
	em.op(asm.RETURN)

	code := &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: superInit},
		&ast.BytecodeStmt{Insns: fieldInit},
	}}
	ctor := cls.AddConstructor(ast.ModPublic, params, code)
	l.c.ReplaceMethodCode(ctor)
}

// addMissingMethod forwards unknown member access to the outer reference.
func addMissingMethod(cls *ast.Class) {
	if len(cls.DeclaredMethods(missingName)) > 0 {
		return
	}
	outer := cls.DeclaredField(outerField)
	var code []asm.Insn
	em := record(&code)
	em.load(ast.ObjectType, 0)
	em.field(asm.GETFIELD, cls.InternalName(), outer.Name, outer.Type.Descriptor())
	em.load(ast.StringType, 1)
	em.load(ast.ObjectType, 2)
	em.invoke(asm.INVOKESTATIC, invokerOwner, "invokeMethod", "("+objectDesc+ast.StringType.Descriptor()+objectDesc+")"+objectDesc)
	em.op(asm.ARETURN)
	cls.AddMethod(missingName, ast.ModPublic, ast.ObjectType, []*ast.Param{
		{Name: "name", Type: ast.StringType},
		{Name: "args", Type: ast.ObjectType},
	}, &ast.BytecodeStmt{Insns: code})
	ensureInterface(cls, ast.MissingMethodHandlerType)
}

func ensureInterface(cls, iface *ast.Class) {
	for _, i := range cls.Interfaces {
		if i.Base() == iface.Base() {
			return
		}
	}
	cls.SetSuper(cls.Super, append(append([]*ast.Class(nil), cls.Interfaces...), iface))
}

// instantiate constructs cls passing the outer reference and the current
// values of the captured locals.
func (l *lowerer) instantiate(cls *ast.Class) {
	ctor := cls.Constructors[0]
	name := cls.InternalName()
	l.typeInsn(asm.NEW, name)
	l.op(asm.DUP)
	for _, p := range ctor.Params {
		if p.Name == outerField {
			if l.staticContext() {
				l.classLiteral(l.owner)
			} else {
				l.load(ast.ObjectType, 0)
			}
			continue
		}
		v := l.stack.Lookup(p.Name)
		if v == nil {
			l.errorf(nil, "captured variable %s is not in scope", p.Name)
			l.pushDefault(p.Type)
			continue
		}
		l.load(v.Type, v.Slot)
		if !v.Type.Equals(p.Type) && !p.Type.IsPrimitive() {
			l.checkCast(p.Type)
		}
	}
	l.invoke(asm.INVOKESPECIAL, name, "<init>", ast.MethodDescriptor(ast.VoidType, ctor.Params))
}

// ---------------------------------------------------------------------------
// Coercion to a single-abstract-method type
// ---------------------------------------------------------------------------

// isMatch tries every call method of cls against the first member of one.
// On the first match it narrows the call method parameters, fixes the
// return type, compiles the call methods and adds the members base still
// lacks. It returns the matched method, or nil.
func (c *Compiler) isMatch(one []*ast.Method, cls, base *ast.Class) *ast.Method {
	if len(one) == 0 {
		return nil
	}
	missing := one[0]
	for _, m := range cls.DeclaredMethods(callMethod) {
		if len(m.Params) != len(missing.Params) {
			continue
		}
		type mutation struct {
			p *ast.Param
			t *ast.Class
		}
		var mutations []mutation
		match := true
		for i, cp := range m.Params {
			pt := ast.SubstitutedType(missing.Params[i].Type, missing.Owner, base)
			switch {
			case ast.IsDirectlyAssignableFrom(ast.Wrap(pt), ast.Wrap(cp.Type)):
			case ast.IsDirectlyAssignableFrom(ast.Wrap(cp.Type), ast.Wrap(pt)):
				mutations = append(mutations, mutation{cp, pt})
			default:
				match = false
			}
			if !match {
				break
			}
		}
		if !match {
			continue
		}

		for _, mu := range mutations {
			mu.p.Type = mu.t
		}
		if len(mutations) > 0 {
			m.ImprovedTypes = true
			cls.Touch()
		}
		improveClosureType(cls, base)

		target := m
		if m.Master != nil {
			target = m.Master
		}
		if r := normalize(missing.Return); r.Base() != ast.VoidType {
			if r.IsPrimitive() {
				target.Return = r
			} else {
				ret := ast.Wrap(missing.Return)
				sub := ast.SubstitutedType(ret, missing.Owner, base)
				if (ret.Equals(sub) || !ast.DerivesFrom(ret, sub)) && !ast.Implements(ret, sub) {
					ret = sub
				}
				if ret.Base() == ast.ObjectType {
					ret = ast.Wrap(missing.Return)
				}
				target.Return = ret
			}
		}

		for _, mn := range cls.Methods {
			if mn.Master != nil || mn.Compiled != nil {
				continue
			}
			if (mn.Return != nil && mn.Return.Kind == ast.KindImprove) || mn.ImprovedTypes {
				c.ReplaceMethodCode(mn)
			}
		}
		if m.Compiled == nil {
			c.ReplaceMethodCode(m)
		}
		makeOneMethodClass(one, cls, base, m)
		return m
	}
	return nil
}

// makeOneMethodClass adds the adapter for the abstract method and turns
// accessor-shaped members into properties.
func makeOneMethodClass(abstract []*ast.Method, cls, base *ast.Class, call *ast.Method) {
	traits := false
	for k, missed := range abstract {
		params := erasedParams(missed.Params)
		switch {
		case k == 0:
			inferBase(call, missed, cls, base)
			ret := ast.Erase(normalize(missed.Return))
			if cls.DeclaredMethod(missed.Name, ast.MethodDescriptor(ret, params)) != nil {
				continue
			}
			cls.AddMethod(missed.Name, ast.ModPublic, ret, params, &ast.BytecodeStmt{Insns: adapterCode(cls, call, params, ret)})
		case missed.Trait:
			traits = true
		case likeGetter(missed):
			ensureProperty(cls, propertyName(missed.Name), ast.Erase(normalize(missed.Return)))
		case likeSetter(missed):
			ensureProperty(cls, propertyName(missed.Name), params[0].Type)
		}
	}
	if traits {
		MaterializeTraitMethods(cls)
	}
}

func erasedParams(ps []*ast.Param) []*ast.Param {
	out := make([]*ast.Param, len(ps))
	for i, p := range ps {
		out[i] = &ast.Param{Name: p.Name, Type: ast.Erase(normalize(p.Type))}
	}
	return out
}

// adapterCode loads the declared arguments, converts each to the call
// method's parameter type, invokes it and converts the result back.
func adapterCode(cls *ast.Class, call *ast.Method, params []*ast.Param, ret *ast.Class) []asm.Insn {
	var code []asm.Insn
	em := record(&code)
	em.load(ast.ObjectType, 0)
	k := 1
	for i, p := range params {
		expected := normalize(call.Params[i].Type)
		em.load(p.Type, k)
		k += width(p.Type)
		if p.Type.IsPrimitive() {
			em.box(p.Type)
			em.cast(ast.Wrap(p.Type), ast.Wrap(expected))
		} else {
			em.checkCast(ast.Wrap(expected))
		}
		em.unbox(expected)
	}
	callRet := normalize(call.Return)
	em.invoke(asm.INVOKEVIRTUAL, cls.InternalName(), call.Name, call.Descriptor())
	switch {
	case ret.Base() == ast.VoidType:
		em.pop(callRet)
	case !ret.Equals(callRet):
		em.box(callRet)
		em.checkCast(ast.Wrap(callRet))
		em.unbox(ret)
	}
	em.doReturn(ret)
	return code
}

// inferBase unifies the abstract method with the compiled call method and,
// when base declares the method itself, reparameterizes the closure's
// supertype with the inferred arguments. The adapter keeps the erased
// signature of missed, so only the supertype changes.
func inferBase(call, missed *ast.Method, cls, base *ast.Class) {
	declaring := missed.Owner.Base()
	if len(missed.Params) != len(call.Params) || len(declaring.GenericParams) == 0 || base.Base() != declaring {
		return
	}
	n := len(missed.Params)
	formals := make([]*ast.Class, n+1)
	actuals := make([]*ast.Class, n+1)
	for i := 0; i < n; i++ {
		formals[i] = missed.Params[i].Type
		actuals[i] = call.Params[i].Type
	}
	formals[n] = missed.Return
	actuals[n] = call.Return
	args := unify.InferTypeArguments(declaring.GenericParams, formals, actuals)
	improveClosureType(cls, ast.Parameterize(base, args...))
}
