package compiler

import (
	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
)

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// expr leaves exactly one value of normalize(e.Type()) on the stack, or
// nothing for void.
func (l *lowerer) expr(e ast.Expr) {
	switch x := e.(type) {
	case *ast.Const:
		l.constant(x)
	case *ast.VarRef:
		l.varRef(x)
	case *ast.Decl:
		l.decl(x)
	case *ast.Assign:
		l.assign(x)
	case *ast.Binary:
		l.binary(x)
	case *ast.Not:
		l.condValue(x)
	case *ast.Ternary:
		l.lineNumber(x)
		elseL, end := asm.NewLabel(), asm.NewLabel()
		l.branch(x.Cond, elseL, false)
		l.expr(x.Then)
		l.cast(x.Then.Type(), x.Type())
		l.jump(asm.GOTO, end)
		l.place(elseL)
		l.expr(x.Else)
		l.cast(x.Else.Type(), x.Type())
		l.place(end)
	case *ast.Call:
		l.call(x)
	case *ast.FieldAccess:
		l.getField(x.Receiver, x.Field, x.Type())
	case *ast.New:
		l.newInstance(x)
	case *ast.SuperInit:
		l.lineNumber(x)
		super := l.owner.Base().Super
		ctor := x.Ctor
		if ctor != nil && ctor.Owner != nil {
			super = ctor.Owner
		}
		l.load(ast.ObjectType, 0)
		desc := l.args(x, ctor, x.Args)
		l.invoke(asm.INVOKESPECIAL, super.InternalName(), "<init>", desc)
	case *ast.Cast:
		l.expr(x.X)
		l.cast(x.X.Type(), x.Typ)
	case *ast.Closure:
		l.closure(x)
	case *ast.Range:
		owner := ast.IntRangeType.InternalName()
		l.typeInsn(asm.NEW, owner)
		l.op(asm.DUP)
		l.expr(x.From)
		l.cast(x.From.Type(), ast.IntType)
		l.expr(x.To)
		l.cast(x.To.Type(), ast.IntType)
		if x.Exclusive {
			l.op(asm.ICONST_1)
			l.op(asm.ISUB)
		}
		l.invoke(asm.INVOKESPECIAL, owner, "<init>", "(II)V")
	case *ast.ClassLit:
		l.classLiteral(x.Of)
	case *ast.List:
		l.list(x)
	case *ast.BytecodeExpr:
		for _, in := range x.Insns {
			l.sink(in)
		}
	case *ast.EmptyExpr:
	default:
		l.unsupported(e, "expression")
	}
}

func (l *lowerer) constant(e *ast.Const) {
	t := normalize(e.Type())
	prim := ast.Unwrap(t)
	var natural *ast.Class
	switch v := e.Value.(type) {
	case nil:
		if t.IsPrimitive() {
			l.pushDefault(t)
		} else {
			l.op(asm.ACONST_NULL)
		}
		return
	case bool:
		if v {
			l.op(asm.ICONST_1)
		} else {
			l.op(asm.ICONST_0)
		}
		natural = ast.BooleanType
	case string:
		l.sink(asm.Ldc(v))
		natural = ast.StringType
	case int:
		natural = l.number(int64(v), float64(v), false, prim)
	case int32:
		natural = l.number(int64(v), float64(v), false, prim)
	case int64:
		natural = l.number(v, float64(v), false, prim)
	case float32:
		natural = l.number(int64(v), float64(v), true, prim)
	case float64:
		natural = l.number(int64(v), v, true, prim)
	default:
		l.errorf(e, "unsupported constant of type %T", e.Value)
		l.pushDefault(t)
		return
	}
	l.cast(natural, t)
}

// number pushes a numeric literal directly in the representation of prim
// when prim is numeric, otherwise as int or double.
func (l *lowerer) number(i int64, f float64, isFloat bool, prim *ast.Class) *ast.Class {
	if !ast.IsNumericPrimitive(prim) {
		if isFloat {
			prim = ast.DoubleType
		} else {
			prim = ast.IntType
		}
	}
	switch prim.Base() {
	case ast.LongType:
		if isFloat {
			i = int64(f)
		}
		l.pushLong(i)
	case ast.FloatType:
		l.pushFloat(float32(f))
	case ast.DoubleType:
		l.pushDouble(f)
	default:
		if isFloat {
			i = int64(f)
		}
		l.pushInt(int(i))
	}
	return prim
}

// ---------------------------------------------------------------------------
// Variables and fields
// ---------------------------------------------------------------------------

func (l *lowerer) varRef(e *ast.VarRef) {
	if e.This {
		l.loadThisFor(e, l.owner)
		return
	}
	if v := l.stack.Lookup(e.Name); v != nil {
		l.load(v.Type, v.Slot)
		l.cast(v.Type, e.Type())
		return
	}
	f := e.Field
	if f == nil {
		f = l.resolveField(e.Name)
	}
	if f == nil {
		l.errorf(e, "cannot find variable %s", e.Name)
		l.pushDefault(e.Type())
		return
	}
	l.getField(nil, f, e.Type())
}

// resolveField looks name up on the owner, its superclasses and then each
// enclosing class.
func (l *lowerer) resolveField(name string) *ast.Field {
	for c := l.owner.Base(); c != nil; c = c.Outer.Base() {
		if f := c.Field(name); f != nil {
			return f
		}
	}
	return nil
}

// loadThisFor pushes the instance of target visible from the current method:
// this, or the object reached by following this$0 links outwards.
func (l *lowerer) loadThisFor(n ast.Node, target *ast.Class) {
	if l.method.IsStatic() {
		l.errorf(n, "cannot reference this from static method %s", l.method.Name)
		l.op(asm.ACONST_NULL)
		return
	}
	l.load(ast.ObjectType, 0)
	cur := l.owner.Base()
	for !assignable(target, cur) {
		f := cur.DeclaredField(outerField)
		if f == nil || f.Type.Base() == ast.ClassType {
			l.errorf(n, "%s is not reachable from %s", target.Name, l.owner.Name)
			return
		}
		l.field(asm.GETFIELD, cur.InternalName(), f.Name, f.Type.Descriptor())
		cur = f.Type.Base()
	}
}

func assignable(to, from *ast.Class) bool {
	return to.Base() == from.Base() || ast.IsDirectlyAssignableFrom(to, from)
}

func (l *lowerer) getField(recv ast.Expr, f *ast.Field, want *ast.Class) {
	owner := f.Owner.InternalName()
	switch {
	case f.IsStatic():
		l.field(asm.GETSTATIC, owner, f.Name, f.Type.Descriptor())
	case recv != nil:
		l.expr(recv)
		l.checkCast(f.Owner)
		l.field(asm.GETFIELD, owner, f.Name, f.Type.Descriptor())
	default:
		l.loadThisFor(recv, f.Owner)
		l.field(asm.GETFIELD, owner, f.Name, f.Type.Descriptor())
	}
	l.cast(ast.Erase(f.Type), want)
}

func (l *lowerer) decl(e *ast.Decl) {
	l.lineNumber(e)
	typ := normalize(e.Typ)
	if e.Init != nil {
		l.expr(e.Init)
		l.cast(e.Init.Type(), typ)
	} else {
		l.pushDefault(typ)
	}
	v, err := l.stack.Define(e.Name, typ)
	if err != nil {
		l.errorf(e, "%v", err)
		return
	}
	l.dup(typ)
	l.store(typ, v.Slot)
}

// assign leaves the assigned value on the stack.
func (l *lowerer) assign(e *ast.Assign) {
	l.lineNumber(e)
	switch t := e.Target.(type) {
	case *ast.VarRef:
		if v := l.stack.Lookup(t.Name); v != nil && !t.This {
			l.expr(e.Value)
			l.cast(e.Value.Type(), v.Type)
			l.dup(v.Type)
			l.store(v.Type, v.Slot)
			l.cast(v.Type, e.Type())
			return
		}
		f := t.Field
		if f == nil {
			f = l.resolveField(t.Name)
		}
		if f == nil {
			l.errorf(e, "cannot assign to undefined variable %s", t.Name)
			l.pushDefault(e.Type())
			return
		}
		l.putField(nil, f, e.Value)
	case *ast.FieldAccess:
		l.putField(t.Receiver, t.Field, e.Value)
	default:
		l.errorf(e, "invalid assignment target")
		l.pushDefault(e.Type())
	}
}

func (l *lowerer) putField(recv ast.Expr, f *ast.Field, value ast.Expr) {
	owner := f.Owner.InternalName()
	ft := ast.Erase(f.Type)
	if f.IsStatic() {
		l.expr(value)
		l.cast(value.Type(), ft)
		l.dup(ft)
		l.field(asm.PUTSTATIC, owner, f.Name, f.Type.Descriptor())
		return
	}
	if recv != nil {
		l.expr(recv)
		l.checkCast(f.Owner)
	} else {
		l.loadThisFor(value, f.Owner)
	}
	l.expr(value)
	l.cast(value.Type(), ft)
	l.dupX1(ft)
	l.field(asm.PUTFIELD, owner, f.Name, f.Type.Descriptor())
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

var arithBase = map[ast.BinaryOp]asm.Opcode{
	ast.OpAdd: asm.IADD,
	ast.OpSub: asm.ISUB,
	ast.OpMul: asm.IMUL,
	ast.OpDiv: asm.IDIV,
	ast.OpMod: asm.IREM,
}

var dynamicOps = map[ast.BinaryOp]string{
	ast.OpAdd: "plus",
	ast.OpSub: "minus",
	ast.OpMul: "multiply",
	ast.OpDiv: "div",
	ast.OpMod: "mod",
}

// typeOffset is the distance from the int form of an arithmetic opcode to
// the form for t.
func typeOffset(t *ast.Class) asm.Opcode {
	switch t.Base() {
	case ast.LongType:
		return 1
	case ast.FloatType:
		return 2
	case ast.DoubleType:
		return 3
	}
	return 0
}

// promote returns the binary numeric promotion of a and b.
func promote(a, b *ast.Class) *ast.Class {
	a, b = ast.Unwrap(a).Base(), ast.Unwrap(b).Base()
	switch {
	case a == ast.DoubleType || b == ast.DoubleType:
		return ast.DoubleType
	case a == ast.FloatType || b == ast.FloatType:
		return ast.FloatType
	case a == ast.LongType || b == ast.LongType:
		return ast.LongType
	}
	return ast.IntType
}

func isNumeric(t *ast.Class) bool {
	return ast.IsNumericPrimitive(ast.Unwrap(normalize(t)))
}

func (l *lowerer) binary(e *ast.Binary) {
	if e.Op.IsComparison() || e.Op == ast.OpAnd || e.Op == ast.OpOr {
		l.condValue(e)
		return
	}
	typ := normalize(e.Type())
	lt, rt := normalize(e.Left.Type()), normalize(e.Right.Type())
	switch {
	case isNumeric(lt) && isNumeric(rt) && (typ.IsPrimitive() || isNumeric(typ)):
		opT := promote(lt, rt)
		l.expr(e.Left)
		l.cast(lt, opT)
		l.expr(e.Right)
		l.cast(rt, opT)
		l.op(arithBase[e.Op] + typeOffset(opT))
		l.cast(opT, typ)
	case e.Op == ast.OpAdd && typ.Base() == ast.StringType:
		valueOf := "(" + objectDesc + ")" + ast.StringType.Descriptor()
		str := ast.StringType.InternalName()
		l.expr(e.Left)
		l.box(lt)
		l.invoke(asm.INVOKESTATIC, str, "valueOf", valueOf)
		l.expr(e.Right)
		l.box(rt)
		l.invoke(asm.INVOKESTATIC, str, "valueOf", valueOf)
		l.invoke(asm.INVOKEVIRTUAL, str, "concat", "("+ast.StringType.Descriptor()+")"+ast.StringType.Descriptor())
	default:
		l.expr(e.Left)
		l.box(lt)
		l.sink(asm.Ldc(dynamicOps[e.Op]))
		l.expr(e.Right)
		l.box(rt)
		l.invoke(asm.INVOKESTATIC, invokerOwner, "invokeMethod", "("+objectDesc+ast.StringType.Descriptor()+objectDesc+")"+objectDesc)
		l.cast(ast.ObjectType, typ)
	}
}

// condValue materializes a condition as 0 or 1.
func (l *lowerer) condValue(e ast.Expr) {
	yes, end := asm.NewLabel(), asm.NewLabel()
	l.branch(e, yes, true)
	l.op(asm.ICONST_0)
	l.jump(asm.GOTO, end)
	l.place(yes)
	l.op(asm.ICONST_1)
	l.place(end)
	l.cast(ast.BooleanType, e.Type())
}

// branch jumps to target when e evaluates to onTrue and falls through
// otherwise.
func (l *lowerer) branch(e ast.Expr, target *asm.Label, onTrue bool) {
	switch x := e.(type) {
	case *ast.Not:
		l.branch(x.X, target, !onTrue)
		return
	case *ast.Const:
		if b, ok := x.Value.(bool); ok {
			if b == onTrue {
				l.jump(asm.GOTO, target)
			}
			return
		}
	case *ast.Binary:
		switch x.Op {
		case ast.OpAnd:
			if onTrue {
				skip := asm.NewLabel()
				l.branch(x.Left, skip, false)
				l.branch(x.Right, target, true)
				l.place(skip)
			} else {
				l.branch(x.Left, target, false)
				l.branch(x.Right, target, false)
			}
			return
		case ast.OpOr:
			if onTrue {
				l.branch(x.Left, target, true)
				l.branch(x.Right, target, true)
			} else {
				skip := asm.NewLabel()
				l.branch(x.Left, skip, true)
				l.branch(x.Right, target, false)
				l.place(skip)
			}
			return
		}
		if x.Op.IsComparison() {
			l.compare(x, target, onTrue)
			return
		}
	}
	l.expr(e)
	l.toCondition(e.Type())
	if onTrue {
		l.jump(asm.IFNE, target)
	} else {
		l.jump(asm.IFEQ, target)
	}
}

// toCondition turns the value on the stack into an int that is non-zero
// exactly when the value is truthy.
func (l *lowerer) toCondition(t *ast.Class) {
	t = normalize(t)
	switch {
	case t.Base() == ast.VoidType:
		l.op(asm.ICONST_0)
	case isIntLike(t):
	case t.Base() == ast.BooleanWrapper:
		l.unbox(ast.BooleanType)
	case t.Base() == ast.LongType:
		l.op(asm.LCONST_0)
		l.op(asm.LCMP)
	case t.Base() == ast.FloatType:
		l.op(asm.FCONST_0)
		l.op(asm.FCMPL)
	case t.Base() == ast.DoubleType:
		l.op(asm.DCONST_0)
		l.op(asm.DCMPL)
	default:
		l.invoke(asm.INVOKESTATIC, dttOwner, "castToBoolean", "("+objectDesc+")Z")
	}
}

// zeroCompare maps a comparison to the IFxx opcode testing its outcome
// against zero.
var zeroCompare = map[ast.BinaryOp]asm.Opcode{
	ast.OpEq: asm.IFEQ,
	ast.OpNe: asm.IFNE,
	ast.OpLt: asm.IFLT,
	ast.OpGe: asm.IFGE,
	ast.OpGt: asm.IFGT,
	ast.OpLe: asm.IFLE,
}

var negated = map[ast.BinaryOp]ast.BinaryOp{
	ast.OpEq: ast.OpNe,
	ast.OpNe: ast.OpEq,
	ast.OpLt: ast.OpGe,
	ast.OpGe: ast.OpLt,
	ast.OpGt: ast.OpLe,
	ast.OpLe: ast.OpGt,
}

// nanGreater reports whether a floating comparison for op must treat NaN as
// greater. The choice follows the source operator, not the branch sense, so
// a NaN operand makes op false on both the taken and the fall-through path.
func nanGreater(op ast.BinaryOp) bool {
	return op == ast.OpLt || op == ast.OpLe
}

func isNull(e ast.Expr) bool {
	c, ok := e.(*ast.Const)
	return ok && c.Value == nil && !normalize(c.Type()).IsPrimitive()
}

func (l *lowerer) compare(e *ast.Binary, target *asm.Label, onTrue bool) {
	op := e.Op
	if !onTrue {
		op = negated[op]
	}
	lt, rt := normalize(e.Left.Type()), normalize(e.Right.Type())

	switch {
	case (op == ast.OpEq || op == ast.OpNe) && (isNull(e.Left) || isNull(e.Right)):
		other := e.Left
		if isNull(e.Left) {
			other = e.Right
		}
		l.expr(other)
		l.box(other.Type())
		if op == ast.OpEq {
			l.jump(asm.IFNULL, target)
		} else {
			l.jump(asm.IFNONNULL, target)
		}

	case lt.IsPrimitive() && rt.IsPrimitive() && isIntLike(lt) && isIntLike(rt) &&
		(lt.Base() == ast.BooleanType) == (rt.Base() == ast.BooleanType):
		l.expr(e.Left)
		l.expr(e.Right)
		l.jump(zeroCompare[op]+(asm.IF_ICMPEQ-asm.IFEQ), target)

	case isNumeric(lt) && isNumeric(rt) && (lt.IsPrimitive() || rt.IsPrimitive()):
		opT := promote(lt, rt)
		l.expr(e.Left)
		l.cast(lt, opT)
		l.expr(e.Right)
		l.cast(rt, opT)
		switch opT.Base() {
		case ast.IntType:
			l.jump(zeroCompare[op]+(asm.IF_ICMPEQ-asm.IFEQ), target)
			return
		case ast.LongType:
			l.op(asm.LCMP)
		case ast.FloatType:
			if nanGreater(e.Op) {
				l.op(asm.FCMPG)
			} else {
				l.op(asm.FCMPL)
			}
		default:
			if nanGreater(e.Op) {
				l.op(asm.DCMPG)
			} else {
				l.op(asm.DCMPL)
			}
		}
		l.jump(zeroCompare[op], target)

	case op == ast.OpEq || op == ast.OpNe:
		l.expr(e.Left)
		l.box(lt)
		l.expr(e.Right)
		l.box(rt)
		l.invoke(asm.INVOKESTATIC, dttOwner, "compareEqual", "("+objectDesc+objectDesc+")Z")
		if op == ast.OpEq {
			l.jump(asm.IFNE, target)
		} else {
			l.jump(asm.IFEQ, target)
		}

	default:
		l.expr(e.Left)
		l.box(lt)
		l.expr(e.Right)
		l.box(rt)
		l.invoke(asm.INVOKESTATIC, dttOwner, "compareTo", "("+objectDesc+objectDesc+")I")
		l.jump(zeroCompare[op], target)
	}
}

// ---------------------------------------------------------------------------
// Calls and allocation
// ---------------------------------------------------------------------------

// args lowers call arguments against the parameters of m and returns the
// descriptor to invoke.
func (l *lowerer) args(n ast.Node, m *ast.Method, args []ast.Expr) string {
	if m == nil {
		params := make([]*ast.Param, len(args))
		for i, a := range args {
			l.expr(a)
			params[i] = &ast.Param{Type: ast.Erase(normalize(a.Type()))}
		}
		return ast.MethodDescriptor(ast.VoidType, params)
	}
	if len(args) != len(m.Params) {
		l.errorf(n, "%s expects %d arguments, got %d", m.Name, len(m.Params), len(args))
	}
	params := make([]*ast.Param, len(m.Params))
	for i, p := range m.Params {
		pt := ast.Erase(normalize(p.Type))
		params[i] = &ast.Param{Name: p.Name, Type: pt}
		if i < len(args) {
			l.expr(args[i])
			l.cast(args[i].Type(), pt)
		} else {
			l.pushDefault(pt)
		}
	}
	return ast.MethodDescriptor(ast.Erase(normalize(m.Return)), params)
}

func (l *lowerer) call(e *ast.Call) {
	l.lineNumber(e)
	m := e.Method
	if m == nil {
		l.dynamicCall(e)
		return
	}
	if m.Return != nil && m.Return.Kind == ast.KindImprove {
		l.c.improve(m)
	}

	owner := m.Owner
	switch {
	case m.IsStatic():
	case e.Receiver != nil:
		l.expr(e.Receiver)
		l.box(e.Receiver.Type())
		l.checkCast(owner)
	default:
		l.loadThisFor(e, owner)
	}

	op := asm.INVOKEVIRTUAL
	switch {
	case m.IsStatic():
		op = asm.INVOKESTATIC
	case e.Super:
		op = asm.INVOKESPECIAL
	case m.Modifiers.Has(ast.ModPrivate):
		op = asm.INVOKESPECIAL
	case owner.IsInterface():
		op = asm.INVOKEINTERFACE
	}
	desc := l.args(e, m, e.Args)
	l.invoke(op, owner.InternalName(), m.Name, desc)
	l.cast(ast.Erase(normalize(m.Return)), e.Type())
}

// dynamicCall dispatches through the runtime with the arguments in an
// Object array.
func (l *lowerer) dynamicCall(e *ast.Call) {
	if e.Receiver != nil {
		l.expr(e.Receiver)
		l.box(e.Receiver.Type())
	} else {
		l.loadThisFor(e, l.owner)
	}
	l.sink(asm.Ldc(e.Name))
	l.pushInt(len(e.Args))
	l.typeInsn(asm.ANEWARRAY, ast.ObjectType.InternalName())
	for i, a := range e.Args {
		l.op(asm.DUP)
		l.pushInt(i)
		l.expr(a)
		l.box(a.Type())
		l.op(asm.AASTORE)
	}
	l.invoke(asm.INVOKESTATIC, invokerOwner, "invokeMethod", "("+objectDesc+ast.StringType.Descriptor()+objectDesc+")"+objectDesc)
	l.cast(ast.ObjectType, e.Type())
}

func (l *lowerer) newInstance(e *ast.New) {
	l.lineNumber(e)
	owner := e.Class.InternalName()
	ctor := e.Ctor
	if ctor == nil {
		ctor = e.Class.Constructor(len(e.Args))
	}
	l.typeInsn(asm.NEW, owner)
	l.op(asm.DUP)
	desc := l.args(e, ctor, e.Args)
	l.invoke(asm.INVOKESPECIAL, owner, "<init>", desc)
}

func (l *lowerer) list(e *ast.List) {
	owner := ast.ArrayListType.InternalName()
	l.typeInsn(asm.NEW, owner)
	l.op(asm.DUP)
	l.invoke(asm.INVOKESPECIAL, owner, "<init>", "()V")
	for _, el := range e.Elems {
		l.op(asm.DUP)
		l.expr(el)
		l.box(el.Type())
		l.invoke(asm.INVOKEVIRTUAL, owner, "add", "("+objectDesc+")Z")
		l.op(asm.POP)
	}
	l.cast(ast.ArrayListType, e.Type())
}
