package compiler

import (
	"math"
	"strings"

	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
)

// ---------------------------------------------------------------------------
// emitter: typed instruction helpers
// ---------------------------------------------------------------------------

var (
	dttOwner     = ast.DTTType.InternalName()
	invokerOwner = ast.InvokerHelperType.InternalName()
	dgmOwner     = ast.DGMType.InternalName()
)

const objectDesc = "Ljava/lang/Object;"

// emitter turns typed operations into instruction records. The sink is
// either a live visitor chain or a slice being built for a BytecodeStmt.
type emitter struct {
	sink func(asm.Insn)
}

// record returns an emitter appending to *out.
func record(out *[]asm.Insn) emitter {
	return emitter{sink: func(in asm.Insn) { *out = append(*out, in) }}
}

func (e emitter) op(o asm.Opcode)                { e.sink(asm.Op(o)) }
func (e emitter) varInsn(o asm.Opcode, slot int) { e.sink(asm.Var(o, slot)) }
func (e emitter) typeInsn(o asm.Opcode, t string) {
	e.sink(asm.TypeOp(o, t))
}
func (e emitter) jump(o asm.Opcode, l *asm.Label) { e.sink(asm.Jump(o, l)) }
func (e emitter) place(l *asm.Label)              { e.sink(asm.Mark(l)) }

func (e emitter) invoke(o asm.Opcode, owner, name, desc string) {
	e.sink(asm.Invoke(o, owner, name, desc))
}

func (e emitter) field(o asm.Opcode, owner, name, desc string) {
	e.sink(asm.FieldOp(o, owner, name, desc))
}

// normalize maps pending and free types to what the JVM sees.
func normalize(t *ast.Class) *ast.Class {
	switch {
	case t == nil:
		return ast.VoidType
	case t.Kind == ast.KindImprove:
		return ast.ObjectType
	case t.IsTypeVar():
		return ast.Erase(t)
	}
	return t
}

func isIntLike(t *ast.Class) bool {
	switch t.Base() {
	case ast.BooleanType, ast.ByteType, ast.CharType, ast.ShortType, ast.IntType:
		return true
	}
	return false
}

func loadOp(t *ast.Class) asm.Opcode {
	t = normalize(t)
	switch {
	case isIntLike(t):
		return asm.ILOAD
	case t.Base() == ast.LongType:
		return asm.LLOAD
	case t.Base() == ast.FloatType:
		return asm.FLOAD
	case t.Base() == ast.DoubleType:
		return asm.DLOAD
	}
	return asm.ALOAD
}

func storeOp(t *ast.Class) asm.Opcode { return loadOp(t) + (asm.ISTORE - asm.ILOAD) }

func returnOp(t *ast.Class) asm.Opcode {
	t = normalize(t)
	if t.Base() == ast.VoidType {
		return asm.RETURN
	}
	return loadOp(t) + (asm.IRETURN - asm.ILOAD)
}

func (e emitter) load(t *ast.Class, slot int)  { e.varInsn(loadOp(t), slot) }
func (e emitter) store(t *ast.Class, slot int) { e.varInsn(storeOp(t), slot) }
func (e emitter) doReturn(t *ast.Class)        { e.op(returnOp(t)) }

// pop discards a value of type t.
func (e emitter) pop(t *ast.Class) {
	t = normalize(t)
	switch {
	case t.Base() == ast.VoidType:
	case t.IsWide():
		e.op(asm.POP2)
	default:
		e.op(asm.POP)
	}
}

// dup duplicates a value of type t.
func (e emitter) dup(t *ast.Class) {
	t = normalize(t)
	switch {
	case t.Base() == ast.VoidType:
	case t.IsWide():
		e.op(asm.DUP2)
	default:
		e.op(asm.DUP)
	}
}

// dupX1 duplicates a value of type t under the reference below it.
func (e emitter) dupX1(t *ast.Class) {
	if normalize(t).IsWide() {
		e.op(asm.DUP2_X1)
	} else {
		e.op(asm.DUP_X1)
	}
}

func (e emitter) pushInt(n int) {
	switch {
	case n >= -1 && n <= 5:
		e.op(asm.ICONST_0 + asm.Opcode(n))
	case n >= math.MinInt8 && n <= math.MaxInt8:
		e.sink(asm.IntOp(asm.BIPUSH, n))
	case n >= math.MinInt16 && n <= math.MaxInt16:
		e.sink(asm.IntOp(asm.SIPUSH, n))
	default:
		e.sink(asm.Ldc(n))
	}
}

func (e emitter) pushLong(n int64) {
	if n == 0 || n == 1 {
		e.op(asm.LCONST_0 + asm.Opcode(n))
		return
	}
	e.sink(asm.Ldc(n))
}

func (e emitter) pushFloat(f float32) {
	switch f {
	case 0:
		e.op(asm.FCONST_0)
	case 1:
		e.op(asm.FCONST_1)
	case 2:
		e.op(asm.FCONST_2)
	default:
		e.sink(asm.Ldc(f))
	}
}

func (e emitter) pushDouble(d float64) {
	switch d {
	case 0:
		e.op(asm.DCONST_0)
	case 1:
		e.op(asm.DCONST_1)
	default:
		e.sink(asm.Ldc(d))
	}
}

// pushDefault pushes the zero value of t.
func (e emitter) pushDefault(t *ast.Class) {
	t = normalize(t)
	switch {
	case t.Base() == ast.VoidType:
	case isIntLike(t):
		e.op(asm.ICONST_0)
	case t.Base() == ast.LongType:
		e.op(asm.LCONST_0)
	case t.Base() == ast.FloatType:
		e.op(asm.FCONST_0)
	case t.Base() == ast.DoubleType:
		e.op(asm.DCONST_0)
	default:
		e.op(asm.ACONST_NULL)
	}
}

// box converts a primitive on the stack to its wrapper.
func (e emitter) box(t *ast.Class) {
	t = normalize(t)
	if !t.IsPrimitive() {
		return
	}
	if t.Base() == ast.VoidType {
		e.op(asm.ACONST_NULL)
		return
	}
	w := ast.Wrap(t)
	e.invoke(asm.INVOKESTATIC, w.InternalName(), "valueOf", "("+t.Descriptor()+")"+w.Descriptor())
}

// unbox converts any reference on the stack to primitive t.
func (e emitter) unbox(t *ast.Class) {
	t = normalize(t)
	if !t.IsPrimitive() || t.Base() == ast.VoidType {
		return
	}
	e.invoke(asm.INVOKESTATIC, dttOwner, t.Name+"Unbox", "("+objectDesc+")"+t.Descriptor())
}

func (e emitter) checkCast(t *ast.Class) {
	t = normalize(t)
	if t.IsPrimitive() || t.Base() == ast.ObjectType {
		return
	}
	e.typeInsn(asm.CHECKCAST, t.InternalName())
}

// cast converts a value of type from on the stack to type to.
func (e emitter) cast(from, to *ast.Class) {
	from, to = normalize(from), normalize(to)
	switch {
	case to.Base() == ast.VoidType:
		e.pop(from)
		return
	case from.Base() == ast.VoidType:
		e.pushDefault(to)
		return
	case from.Kind == ast.KindNull:
		if to.IsPrimitive() {
			e.op(asm.POP)
			e.pushDefault(to)
		}
		return
	}
	fromP, toP := from.IsPrimitive(), to.IsPrimitive()
	switch {
	case fromP && toP:
		e.convert(from, to)
	case fromP:
		if ast.IsWrapper(to) && ast.Unwrap(to) != from.Base() {
			prim := ast.Unwrap(to)
			e.convert(from, prim)
			e.box(prim)
			return
		}
		e.box(from)
		if !ast.IsDirectlyAssignableFrom(to, ast.Wrap(from)) {
			e.checkCast(to)
		}
	case toP:
		e.unbox(to)
	default:
		if ast.IsWrapper(from) && ast.IsWrapper(to) && from.Base() != to.Base() &&
			ast.IsNumericPrimitive(ast.Unwrap(from)) && ast.IsNumericPrimitive(ast.Unwrap(to)) {
			e.unbox(ast.Unwrap(from))
			e.convert(ast.Unwrap(from), ast.Unwrap(to))
			e.box(ast.Unwrap(to))
			return
		}
		if !ast.IsDirectlyAssignableFrom(to, from) {
			e.checkCast(to)
		}
	}
}

// convert applies the JVM primitive widening or narrowing between from and to.
func (e emitter) convert(from, to *ast.Class) {
	f, t := from.Base(), to.Base()
	if f == t {
		return
	}
	if f == ast.BooleanType || t == ast.BooleanType {
		e.box(f)
		e.unbox(t)
		return
	}
	// bring everything to int, long, float or double first
	switch f {
	case ast.LongType:
		switch t {
		case ast.FloatType:
			e.op(asm.L2F)
			return
		case ast.DoubleType:
			e.op(asm.L2D)
			return
		}
		e.op(asm.L2I)
	case ast.FloatType:
		switch t {
		case ast.LongType:
			e.op(asm.F2L)
			return
		case ast.DoubleType:
			e.op(asm.F2D)
			return
		}
		e.op(asm.F2I)
	case ast.DoubleType:
		switch t {
		case ast.LongType:
			e.op(asm.D2L)
			return
		case ast.FloatType:
			e.op(asm.D2F)
			return
		}
		e.op(asm.D2I)
	default:
		switch t {
		case ast.LongType:
			e.op(asm.I2L)
			return
		case ast.FloatType:
			e.op(asm.I2F)
			return
		case ast.DoubleType:
			e.op(asm.I2D)
			return
		}
	}
	switch t {
	case ast.ByteType:
		e.op(asm.I2B)
	case ast.CharType:
		e.op(asm.I2C)
	case ast.ShortType:
		if f != ast.ByteType {
			e.op(asm.I2S)
		}
	}
}

// classLiteral pushes the java.lang.Class for t.
func (e emitter) classLiteral(t *ast.Class) {
	if t.IsPrimitive() {
		e.field(asm.GETSTATIC, ast.Wrap(t).InternalName(), "TYPE", ast.ClassType.Descriptor())
		return
	}
	name := t.Base().Name
	if t.IsArray() {
		name = strings.ReplaceAll(t.Descriptor(), "/", ".")
	}
	e.sink(asm.Ldc(name))
	e.invoke(asm.INVOKESTATIC, ast.ClassType.InternalName(), "forName", "(Ljava/lang/String;)"+ast.ClassType.Descriptor())
}

// loadArgs loads params starting at slot first, returning the next free slot.
func (e emitter) loadArgs(params []*ast.Param, first int) int {
	k := first
	for _, p := range params {
		e.load(p.Type, k)
		k += width(p.Type)
	}
	return k
}
