package compiler

import (
	"fmt"

	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
)

// ---------------------------------------------------------------------------
// lowerer: statement lowering for one method body
// ---------------------------------------------------------------------------

type lowerer struct {
	emitter

	c      *Compiler
	owner  *ast.Class
	method *ast.Method
	mv     asm.MethodVisitor
	stack  *CompileStack

	// ret is the return type code is generated against; pending return
	// types are compiled as Object first.
	ret         *ast.Class
	returnTypes []*ast.Class

	exceptions []asm.Insn
	diags      []*Diagnostic
	lastLine   int
	reachable  bool
	// targets holds labels some emitted jump or switch refers to.
	targets map[*asm.Label]bool
}

func newLowerer(c *Compiler, owner *ast.Class, m *ast.Method, mv asm.MethodVisitor, stack *CompileStack, ret *ast.Class) *lowerer {
	l := &lowerer{
		c:         c,
		owner:     owner,
		method:    m,
		mv:        mv,
		stack:     stack,
		ret:       ret,
		lastLine:  -1,
		reachable: true,
		targets:   map[*asm.Label]bool{},
	}
	l.sink = l.emit
	return l
}

// emit forwards in to the visitor chain. Code after a terminating
// instruction is dropped until a label that is a known jump target, or an
// exception handler, is placed.
func (l *lowerer) emit(in asm.Insn) {
	switch in.Kind {
	case asm.KindLabel:
		l.reachable = l.reachable || l.targets[in.Label]
	case asm.KindLine, asm.KindTryCatch, asm.KindMaxs:
	default:
		if !l.reachable {
			return
		}
		switch in.Kind {
		case asm.KindJump, asm.KindTableSwitch, asm.KindLookupSwitch:
			l.targets[in.Label] = true
			for _, lb := range in.Labels {
				l.targets[lb] = true
			}
		}
		if in.Op.Terminates() {
			l.reachable = false
		}
	}
	in.Accept(l.mv)
}

// handler places the entry point of an exception handler.
func (l *lowerer) handler() *asm.Label {
	lb := asm.NewLabel()
	l.reachable = true
	l.place(lb)
	return lb
}

// mark places and returns a fresh label.
func (l *lowerer) mark() *asm.Label {
	lb := asm.NewLabel()
	l.place(lb)
	return lb
}

// errorf records a diagnostic against the method. Diagnostics are only
// published for the final lowering pass.
func (l *lowerer) errorf(n ast.Node, format string, args ...any) {
	cls, name := classMethod(l.method)
	line := 0
	if n != nil {
		line = n.Pos()
	}
	l.diags = append(l.diags, &Diagnostic{Severity: Error, Class: cls, Method: name, Line: line, Message: fmt.Sprintf(format, args...)})
}

// unsupported aborts the method; the driver stubs it.
func (l *lowerer) unsupported(n ast.Node, what string) {
	cls, name := classMethod(l.method)
	panic(&Diagnostic{
		Severity: Error, Class: cls, Method: name, Line: n.Pos(),
		Message: fmt.Sprintf("%s: %v", what, ErrUnsupported),
		Err:     ErrUnsupported,
	})
}

func (l *lowerer) lineNumber(n ast.Node) {
	line := n.Pos()
	if !l.reachable || line <= 0 || line == l.lastLine {
		return
	}
	lb := l.mark()
	l.sink(asm.Line(line, lb))
	l.lastLine = line
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (l *lowerer) lowerStmt(s ast.Stmt) {
	if s == nil {
		return
	}
	switch st := s.(type) {
	case *ast.Block:
		l.stack.PushScope()
		for _, inner := range st.Stmts {
			l.lowerStmt(inner)
		}
		l.stack.PopScope()
	case *ast.ExprStmt:
		l.lineNumber(st)
		l.expr(st.X)
		l.pop(st.X.Type())
	case *ast.If:
		l.lowerIf(st)
	case *ast.While:
		l.lowerWhile(st)
	case *ast.DoWhile:
		l.lineNumber(st)
		l.unsupported(st, "do/while loop")
	case *ast.ForIn:
		l.lowerForIn(st)
	case *ast.For:
		l.lowerFor(st)
	case *ast.Switch:
		l.lowerSwitch(st)
	case *ast.Try:
		l.lowerTry(st)
	case *ast.Synchronized:
		l.lowerSynchronized(st)
	case *ast.Return:
		l.lowerReturn(st)
	case *ast.Throw:
		l.lineNumber(st)
		l.expr(st.X)
		l.op(asm.ATHROW)
	case *ast.Break:
		l.lineNumber(st)
		f, err := l.stack.breakTarget(st.Label)
		if err != nil {
			l.errorf(st, "%v", err)
			return
		}
		l.applyFinallies(f.finallies)
		l.jump(asm.GOTO, f.brk)
		l.resumeFinallies(f.finallies)
	case *ast.Continue:
		l.lineNumber(st)
		f, err := l.stack.continueTarget(st.Label)
		if err != nil {
			l.errorf(st, "%v", err)
			return
		}
		l.applyFinallies(f.finallies)
		l.jump(asm.GOTO, f.cont)
		l.resumeFinallies(f.finallies)
	case *ast.Assert:
		l.lowerAssert(st)
	case *ast.Empty:
	case *ast.BytecodeStmt:
		l.lineNumber(st)
		for _, in := range st.Insns {
			l.sink(in)
		}
	default:
		panic(fmt.Sprintf("unknown statement %T", s))
	}
}

func (l *lowerer) lowerIf(s *ast.If) {
	l.lineNumber(s)
	elseL := asm.NewLabel()
	l.branch(s.Cond, elseL, false)
	l.lowerStmt(s.Then)
	if ast.IsEmpty(s.Else) {
		l.place(elseL)
		return
	}
	end := asm.NewLabel()
	l.jump(asm.GOTO, end)
	l.place(elseL)
	l.lowerStmt(s.Else)
	l.place(end)
}

func (l *lowerer) lowerWhile(s *ast.While) {
	l.lineNumber(s)
	brk, cont := l.stack.PushLoop(s.Label)
	l.place(cont)
	l.branch(s.Cond, brk, false)
	l.lowerStmt(s.Body)
	l.jump(asm.GOTO, cont)
	l.place(brk)
	l.stack.PopFrame()
}

// lowerForIn iterates via Iterator. Integer ranges bind the loop variable
// through a cast to Integer.
func (l *lowerer) lowerForIn(s *ast.ForIn) {
	l.lineNumber(s)
	l.stack.PushScope()
	brk, cont := l.stack.PushLoop(s.Label)

	coll := s.Collection.Type()
	l.expr(s.Collection)
	iterable := ast.AsSeenFrom(ast.Wrap(coll), ast.IterableType)
	switch {
	case iterable == nil:
		l.box(coll)
		l.invoke(asm.INVOKESTATIC, invokerOwner, "asIterator", "("+objectDesc+")"+ast.IteratorType.Descriptor())
	case coll.IsInterface():
		l.invoke(asm.INVOKEINTERFACE, coll.InternalName(), "iterator", "()"+ast.IteratorType.Descriptor())
	default:
		l.invoke(asm.INVOKEVIRTUAL, coll.InternalName(), "iterator", "()"+ast.IteratorType.Descriptor())
	}
	iter := l.stack.Temp(ast.IteratorType)
	l.store(ast.IteratorType, iter)

	elem := ast.ObjectType
	if coll.Base() == ast.IntRangeType {
		elem = ast.IntegerWrapper
	} else if iterable != nil && len(iterable.TypeArgs) == 1 {
		elem = ast.Erase(iterable.TypeArgs[0])
	}
	v, err := l.stack.Define(s.Var.Name, s.Var.Type)
	if err != nil {
		l.errorf(s, "%v", err)
		v = &Variable{Name: s.Var.Name, Type: s.Var.Type, Slot: l.stack.Temp(s.Var.Type)}
	}

	l.place(cont)
	l.load(ast.IteratorType, iter)
	l.invoke(asm.INVOKEINTERFACE, ast.IteratorType.InternalName(), "hasNext", "()Z")
	l.jump(asm.IFEQ, brk)
	l.load(ast.IteratorType, iter)
	l.invoke(asm.INVOKEINTERFACE, ast.IteratorType.InternalName(), "next", "()"+objectDesc)
	l.checkCast(elem)
	l.cast(elem, v.Type)
	l.store(v.Type, v.Slot)

	l.lowerStmt(s.Body)
	l.jump(asm.GOTO, cont)
	l.place(brk)

	l.stack.PopFrame()
	l.stack.PopScope()
}

func (l *lowerer) lowerFor(s *ast.For) {
	l.lineNumber(s)
	l.stack.PushScope()
	brk, cont := l.stack.PushLoop(s.Label)

	if s.Init != nil {
		l.expr(s.Init)
		l.pop(s.Init.Type())
	}
	cond := l.mark()
	if s.Cond != nil {
		l.branch(s.Cond, brk, false)
	}
	l.lowerStmt(s.Body)
	l.place(cont)
	if s.Update != nil {
		l.expr(s.Update)
		l.pop(s.Update.Type())
	}
	l.jump(asm.GOTO, cond)
	l.place(brk)

	l.stack.PopFrame()
	l.stack.PopScope()
}

// lowerSwitch compares the boxed subject with each case in order: identical
// references (and null against null) match directly, anything else goes
// through isCase. Case bodies fall through; default comes last.
func (l *lowerer) lowerSwitch(s *ast.Switch) {
	l.lineNumber(s)
	l.expr(s.X)
	l.box(s.X.Type())
	brk := l.stack.PushSwitch()
	subject := l.stack.Temp(ast.ObjectType)
	l.store(ast.ObjectType, subject)

	code := make([]*asm.Label, len(s.Cases))
	conds := make([]*asm.Label, len(s.Cases))
	for i := range s.Cases {
		code[i], conds[i] = asm.NewLabel(), asm.NewLabel()
	}
	dflt := asm.NewLabel()

	for i, c := range s.Cases {
		l.place(conds[i])
		l.lineNumber(c)
		next := dflt
		if i < len(s.Cases)-1 {
			next = conds[i+1]
		}
		l.load(ast.ObjectType, subject)
		l.expr(c.Value)
		l.box(c.Value.Type())

		notNull, slow := asm.NewLabel(), asm.NewLabel()
		l.op(asm.DUP)
		l.jump(asm.IFNONNULL, notNull)
		l.jump(asm.IF_ACMPEQ, code[i])
		l.jump(asm.GOTO, next)

		l.place(notNull)
		l.op(asm.DUP2)
		l.jump(asm.IF_ACMPNE, slow)
		l.op(asm.POP2)
		l.jump(asm.GOTO, code[i])
		l.place(slow)
		l.op(asm.SWAP)
		l.invoke(asm.INVOKESTATIC, dgmOwner, "isCase", "("+objectDesc+objectDesc+")Z")
		l.jump(asm.IFNE, code[i])
	}
	l.jump(asm.GOTO, dflt)

	for i, c := range s.Cases {
		l.place(code[i])
		l.lowerStmt(c.Body)
	}
	l.place(dflt)
	l.lowerStmt(s.Default)
	l.place(brk)
	l.stack.PopFrame()
}

// lowerTry repeats the finally block on every exit: after the body, after
// each catch, and in a catch-all handler that rethrows.
func (l *lowerer) lowerTry(s *ast.Try) {
	l.lineNumber(s)
	hasFinally := !ast.IsEmpty(s.Finally)
	var rec *blockRecorder
	if hasFinally {
		rec = l.stack.pushFinally(func() { l.lowerStmt(s.Finally) })
	}

	tryStart := l.mark()
	if rec != nil {
		rec.startRange(tryStart)
	}
	l.lowerStmt(s.Body)
	fell := l.reachable
	tryEnd := l.mark()
	exit := asm.NewLabel()
	if fell {
		if rec != nil {
			l.inlineFinally(len(l.stack.finallies) - 1)
		}
		l.jump(asm.GOTO, exit)
		if rec != nil {
			l.resumeFinallies(len(l.stack.finallies) - 1)
		}
	}

	for _, c := range s.Catches {
		handler := l.handler()
		l.exceptions = append(l.exceptions, asm.TryCatch(tryStart, tryEnd, handler, c.Var.Type.InternalName()))
		l.stack.PushScope()
		v, err := l.stack.Define(c.Var.Name, c.Var.Type)
		if err != nil {
			l.errorf(c, "%v", err)
			l.op(asm.POP)
		} else {
			l.store(v.Type, v.Slot)
		}
		l.lowerStmt(c.Body)
		l.stack.PopScope()
		if l.reachable {
			if rec != nil {
				l.inlineFinally(len(l.stack.finallies) - 1)
			}
			l.jump(asm.GOTO, exit)
			if rec != nil {
				l.resumeFinallies(len(l.stack.finallies) - 1)
			}
		}
	}

	if rec != nil {
		rec.closeRange(l.mark())
		l.stack.popFinally()

		catchAny := l.handler()
		for _, r := range rec.ranges {
			l.exceptions = append(l.exceptions, asm.TryCatch(r.start, r.end, catchAny, ""))
		}
		exc := l.stack.Temp(ast.ThrowableType)
		l.store(ast.ThrowableType, exc)
		l.lowerStmt(s.Finally)
		l.load(ast.ThrowableType, exc)
		l.op(asm.ATHROW)
	}
	l.place(exit)
}

func (l *lowerer) lowerSynchronized(s *ast.Synchronized) {
	l.lineNumber(s)
	l.expr(s.Lock)
	l.box(s.Lock.Type())
	lock := l.stack.Temp(ast.ObjectType)
	l.dup(ast.ObjectType)
	l.store(ast.ObjectType, lock)
	l.op(asm.MONITORENTER)

	exitMonitor := func() {
		l.load(ast.ObjectType, lock)
		l.op(asm.MONITOREXIT)
	}
	rec := l.stack.pushFinally(exitMonitor)
	rec.startRange(l.mark())
	l.lowerStmt(s.Body)
	rec.closeRange(l.mark())
	l.stack.popFinally()

	exit := asm.NewLabel()
	exitMonitor()
	l.jump(asm.GOTO, exit)

	catchAll := l.handler()
	for _, r := range rec.ranges {
		l.exceptions = append(l.exceptions, asm.TryCatch(r.start, r.end, catchAll, ""))
	}
	exc := l.stack.Temp(ast.ThrowableType)
	l.store(ast.ThrowableType, exc)
	exitMonitor()
	l.load(ast.ThrowableType, exc)
	l.op(asm.ATHROW)
	l.place(exit)
}

// lowerReturn stashes the value while pending finally blocks run.
func (l *lowerer) lowerReturn(s *ast.Return) {
	l.lineNumber(s)
	ret := normalize(l.ret)
	if ret.Base() == ast.VoidType {
		if s.X != nil {
			l.expr(s.X)
			l.pop(s.X.Type())
		}
		l.applyFinallies(0)
		l.op(asm.RETURN)
		l.resumeFinallies(0)
		return
	}
	if s.X == nil {
		l.returnTypes = append(l.returnTypes, ast.NullType)
		l.pushDefault(ret)
	} else {
		l.expr(s.X)
		l.returnTypes = append(l.returnTypes, s.X.Type())
		l.cast(s.X.Type(), ret)
	}
	if l.stack.HasFinally() {
		tmp := l.stack.Temp(ret)
		l.store(ret, tmp)
		l.applyFinallies(0)
		l.load(ret, tmp)
		l.doReturn(ret)
		l.resumeFinallies(0)
		return
	}
	l.doReturn(ret)
}

func (l *lowerer) lowerAssert(s *ast.Assert) {
	l.lineNumber(s)
	ok := asm.NewLabel()
	l.branch(s.Cond, ok, true)
	owner := ast.AssertErrorType.InternalName()
	l.typeInsn(asm.NEW, owner)
	l.op(asm.DUP)
	if s.Message != nil {
		l.expr(s.Message)
		l.box(s.Message.Type())
	} else {
		l.sink(asm.Ldc("<no message>"))
	}
	l.invoke(asm.INVOKESPECIAL, owner, "<init>", "("+objectDesc+")V")
	l.op(asm.ATHROW)
	l.place(ok)
}

// ---------------------------------------------------------------------------
// Finally blocks
// ---------------------------------------------------------------------------

// applyFinallies inlines every pending finally block down to depth, innermost
// first. The protected ranges of those blocks stay closed until
// resumeFinallies, so no copy runs under a catch-all that would repeat it.
func (l *lowerer) applyFinallies(depth int) {
	for i := len(l.stack.finallies) - 1; i >= depth; i-- {
		l.inlineFinally(i)
	}
}

// resumeFinallies reopens the ranges applyFinallies(depth) closed. Callers
// invoke it once the exit jump or return has been emitted.
func (l *lowerer) resumeFinallies(depth int) {
	if depth >= len(l.stack.finallies) {
		return
	}
	start := l.mark()
	for _, rec := range l.stack.finallies[depth:] {
		rec.startRange(start)
	}
}

// inlineFinally emits a copy of finally block i outside its own protected
// range. Blocks at i and above are hidden while it runs so a return inside
// the finally code does not re-enter them. Enclosing blocks keep covering
// the copy.
func (l *lowerer) inlineFinally(i int) {
	saved := l.stack.finallies
	rec := saved[i]
	rec.closeRange(l.mark())
	l.stack.finallies = saved[:i]
	rec.emit()
	l.stack.finallies = saved
}
