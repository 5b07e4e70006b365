// Package compiler lowers typed method bodies to JVM instruction sequences.
// It materializes closures as synthetic classes, infers pending return
// types and reports problems as batched diagnostics.
package compiler

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
	"github.com/chazu/groovypp/unify"
)

// Options configures a Compiler.
type Options struct {
	// Stages selects the peephole stages placed in front of the recorder.
	Stages asm.Stages
	// Debug logs the disassembly of every compiled method.
	Debug bool
	// Workers bounds how many classes CompileModule lowers at once.
	// Zero means GOMAXPROCS.
	Workers int
}

// DefaultOptions enables every optimizer stage.
func DefaultOptions() Options {
	return Options{Stages: asm.AllStages}
}

// Compiler compiles the methods of one module.
type Compiler struct {
	module *ast.Module
	opts   Options
	diags  *Diagnostics
	log    commonlog.Logger

	inProgress sync.Map // *ast.Method -> struct{}
	closures   sync.Map // *ast.Closure -> *materialized
}

// New creates a compiler for module.
func New(module *ast.Module, opts Options) *Compiler {
	return &Compiler{
		module: module,
		opts:   opts,
		diags:  NewDiagnostics(),
		log:    commonlog.GetLogger("groovypp.compiler"),
	}
}

// Diagnostics returns everything reported so far.
func (c *Compiler) Diagnostics() *Diagnostics { return c.diags }

// Module returns the module being compiled.
func (c *Compiler) Module() *ast.Module { return c.module }

// ---------------------------------------------------------------------------
// Module and class entry points
// ---------------------------------------------------------------------------

// CompileModule compiles every registered class. Methods whose return type
// is pending inference are compiled first, in registration order, so their
// signatures are settled before classes are lowered concurrently.
func (c *Compiler) CompileModule(ctx context.Context) error {
	classes := c.module.Classes()
	for _, cls := range classes {
		for _, m := range cls.Methods {
			if pending(m) && m.Compiled == nil {
				c.ReplaceMethodCode(m)
			}
		}
	}

	workers := c.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, cls := range classes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.CompileClass(cls)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("compile %s: %w", c.module.Name, err)
	}
	c.log.Infof("compiled module %s: %d classes, %d errors, %d warnings",
		c.module.Name, len(c.module.Classes()), c.diags.ErrorCount(), c.diags.WarningCount())
	return c.diags.Err()
}

// CompileClass compiles every constructor and method of cls that has a body
// and has not been compiled yet, then verifies the class.
func (c *Compiler) CompileClass(cls *ast.Class) {
	for _, m := range cls.Constructors {
		if m.Compiled == nil && m.Code != nil {
			c.ReplaceMethodCode(m)
		}
	}
	for _, m := range cls.Methods {
		if m.Compiled == nil && m.Code != nil && !m.IsAbstract() {
			c.ReplaceMethodCode(m)
		}
	}
	c.verifyClass(cls)
}

func pending(m *ast.Method) bool {
	return m.Return != nil && m.Return.Kind == ast.KindImprove
}

// improve compiles m ahead of a call site that needs its return type. A
// method already being compiled (a recursive call) keeps its pending type.
func (c *Compiler) improve(m *ast.Method) {
	if m.Compiled != nil || m.Code == nil {
		return
	}
	if _, busy := c.inProgress.Load(m); busy {
		return
	}
	c.ReplaceMethodCode(m)
}

// ---------------------------------------------------------------------------
// Method compilation
// ---------------------------------------------------------------------------

// ReplaceMethodCode compiles m and replaces its body with the resulting
// instruction sequence. A dependent overload is compiled through its master
// so that it shares the master's final return type. On failure the method
// and its dependents get a stub body and a diagnostic.
func (c *Compiler) ReplaceMethodCode(m *ast.Method) {
	if m.Master != nil && m.Master.Compiled == nil {
		c.ReplaceMethodCode(m.Master)
		return
	}
	c.compile(m)
	for _, d := range m.Dependents {
		if d.Compiled != nil {
			continue
		}
		d.Return = m.Return
		if m.Stubbed {
			c.stub(d)
			continue
		}
		c.compile(d)
	}
}

func (c *Compiler) compile(m *ast.Method) {
	if _, busy := c.inProgress.LoadOrStore(m, struct{}{}); busy {
		return
	}
	defer c.inProgress.Delete(m)

	improving := pending(m)
	res, err := c.lowerMethod(m, m.Return)
	if err == nil && improving {
		inferred := inferReturnType(res.returns)
		m.Return = inferred
		if normalize(inferred).Base() != ast.ObjectType {
			res, err = c.lowerMethod(m, inferred)
		}
	}
	if err != nil {
		c.diags.Add(asDiagnostic(m, err))
		c.stub(m)
		return
	}
	for _, d := range res.diags {
		c.diags.Add(d)
	}
	m.Compiled = res.seq
	if c.opts.Debug {
		c.log.Debugf("%s", asm.DisassembleWithName(methodLabel(m), res.seq))
	}
}

func methodLabel(m *ast.Method) string {
	cls, name := classMethod(m)
	return cls + "." + name + m.Descriptor()
}

type lowered struct {
	seq     *asm.Sequence
	returns []*ast.Class
	diags   []*Diagnostic
}

// lowerMethod runs one lowering pass of m against return type ret. Panics
// raised while lowering are turned into errors.
func (c *Compiler) lowerMethod(m *ast.Method, ret *ast.Class) (res *lowered, err error) {
	stack, err := NewCompileStack(m.IsStatic(), m.Params)
	if err != nil {
		return nil, err
	}
	rec := asm.NewRecorder()
	mv := asm.NewOptimizer(rec, c.opts.Stages)
	l := newLowerer(c, m.Owner, m, mv, stack, ret)

	defer func() {
		if r := recover(); r != nil {
			if d, ok := r.(*Diagnostic); ok {
				err = d
				return
			}
			err = &InternalError{Method: methodLabel(m), Value: r}
		}
	}()

	body := m.Code
	if !m.IsConstructor() && normalize(ret).Base() != ast.VoidType {
		body = addReturnIfNeeded(body)
	}
	l.lowerStmt(body)
	if l.reachable {
		r := normalize(ret)
		if ret != nil && ret.Kind == ast.KindImprove {
			l.returnTypes = append(l.returnTypes, ast.NullType)
		}
		l.pushDefault(r)
		l.doReturn(r)
	}
	for _, ex := range l.exceptions {
		ex.Accept(mv)
	}
	mv.VisitMaxs(0, stack.MaxLocals())
	mv.VisitEnd()

	seq := rec.Sequence()
	pruneEmptyRanges(seq)
	return &lowered{seq: seq, returns: l.returnTypes, diags: l.diags}, nil
}

// stub replaces m's body with one that returns the default value.
func (c *Compiler) stub(m *ast.Method) {
	var insns []asm.Insn
	em := record(&insns)
	ret := normalize(m.Return)
	em.pushDefault(ret)
	em.doReturn(ret)
	stack := 0
	if ret.Base() != ast.VoidType {
		stack = width(ret)
	}
	m.Compiled = &asm.Sequence{Insns: insns, MaxStack: stack, MaxLocals: m.ArgSlots() + boolInt(!m.IsStatic())}
	m.Stubbed = true
	c.log.Warningf("stubbed %s", methodLabel(m))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func asDiagnostic(m *ast.Method, err error) *Diagnostic {
	if d, ok := err.(*Diagnostic); ok {
		return d
	}
	cls, name := classMethod(m)
	return &Diagnostic{Severity: Error, Class: cls, Method: name, Line: m.Line, Message: err.Error(), Err: err}
}

// inferReturnType joins the types of every returned value. A method that
// returns the same primitive everywhere keeps it; otherwise values are
// boxed and joined to their common supertype.
func inferReturnType(types []*ast.Class) *ast.Class {
	if len(types) == 0 {
		return ast.ObjectType
	}
	first := normalize(types[0])
	if first.IsPrimitive() && first.Base() != ast.VoidType {
		same := true
		for _, t := range types[1:] {
			if normalize(t).Base() != first.Base() {
				same = false
				break
			}
		}
		if same {
			return first.Base()
		}
	}
	var joined []*ast.Class
	for _, t := range types {
		t = normalize(t)
		if t.Kind == ast.KindNull || t.Base() == ast.VoidType {
			continue
		}
		joined = append(joined, ast.Wrap(t))
	}
	if len(joined) == 0 {
		return ast.ObjectType
	}
	v := ast.TypeVar("R")
	formals := make([]*ast.Class, len(joined))
	for i := range formals {
		formals[i] = v
	}
	return unify.InferTypeArguments([]*ast.GenericParam{{Name: "R"}}, formals, joined)[0]
}

// pruneEmptyRanges drops exception-table entries whose range covers no
// instruction.
func pruneEmptyRanges(seq *asm.Sequence) {
	pos := map[*asm.Label]int{}
	before := make([]int, len(seq.Insns)+1)
	n := 0
	for i, in := range seq.Insns {
		before[i] = n
		switch in.Kind {
		case asm.KindLabel:
			pos[in.Label] = i
		case asm.KindLine, asm.KindTryCatch, asm.KindMaxs:
		default:
			n++
		}
	}
	before[len(seq.Insns)] = n

	out := seq.Insns[:0]
	for _, in := range seq.Insns {
		if in.Kind == asm.KindTryCatch {
			s, okS := pos[in.Label]
			e, okE := pos[in.End]
			if !okS || !okE || before[e] <= before[s] {
				continue
			}
		}
		out = append(out, in)
	}
	seq.Insns = out
}
