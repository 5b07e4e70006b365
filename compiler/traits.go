package compiler

import (
	"strings"

	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
)

// improveClosureType rebases cls onto base. Interfaces are implemented on
// top of Object; abstract classes become the superclass.
func improveClosureType(cls, base *ast.Class) {
	var super *ast.Class
	var ifaces []*ast.Class
	switch {
	case base.IsInterface():
		super = ast.ObjectType
		ifaces = []*ast.Class{base}
	case base.Base() == ast.ClosureType:
		super = base
		ifaces = []*ast.Class{ast.GeneratedClosureType}
	default:
		super = base
	}
	cls.SetSuper(super, append(ifaces, ast.MissingMethodHandlerType))
}

// ensureProperty adds a property with accessors unless cls already has it.
// The backing field is not a constructor parameter.
func ensureProperty(cls *ast.Class, name string, typ *ast.Class) *ast.Property {
	for _, p := range cls.Properties {
		if p.Name == name {
			return p
		}
	}
	p := cls.AddProperty(name, ast.ModPublic, typ)
	p.Field.NoExternalInit = true

	suffix := strings.ToUpper(name[:1]) + name[1:]
	owner := cls.InternalName()

	var get []asm.Insn
	em := record(&get)
	em.load(ast.ObjectType, 0)
	em.field(asm.GETFIELD, owner, name, typ.Descriptor())
	em.doReturn(typ)
	p.Getter = cls.AddMethod("get"+suffix, ast.ModPublic, typ, nil, &ast.BytecodeStmt{Insns: get})

	var set []asm.Insn
	em = record(&set)
	em.load(ast.ObjectType, 0)
	em.load(typ, 1)
	em.field(asm.PUTFIELD, owner, name, typ.Descriptor())
	em.op(asm.RETURN)
	p.Setter = cls.AddMethod("set"+suffix, ast.ModPublic, ast.VoidType, []*ast.Param{{Name: name, Type: typ}}, &ast.BytecodeStmt{Insns: set})
	return p
}

// MaterializeTraitMethods implements every trait member cls still lacks by
// delegating to the static default in <Interface>$TraitImpl, which takes the
// receiver as its first argument.
func MaterializeTraitMethods(cls *ast.Class) {
	for _, m := range cls.AbstractMethods() {
		if !m.Trait {
			continue
		}
		params := erasedParams(m.Params)
		ret := ast.Erase(normalize(m.Return))
		impl := m.Owner.InternalName() + traitSuffix
		self := append([]*ast.Param{{Name: "self", Type: m.Owner.Base()}}, params...)

		var code []asm.Insn
		em := record(&code)
		em.load(ast.ObjectType, 0)
		em.loadArgs(params, 1)
		em.invoke(asm.INVOKESTATIC, impl, m.Name, ast.MethodDescriptor(ret, self))
		em.doReturn(ret)
		cls.AddMethod(m.Name, ast.ModPublic, ret, params, &ast.BytecodeStmt{Insns: code})
	}
}
