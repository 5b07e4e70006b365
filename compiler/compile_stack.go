package compiler

import (
	"fmt"

	"github.com/chazu/groovypp/asm"
	"github.com/chazu/groovypp/ast"
)

// ---------------------------------------------------------------------------
// CompileStack: slot table and control-flow bookkeeping for one method
// ---------------------------------------------------------------------------

// Variable is a local variable bound to a slot.
type Variable struct {
	Name string
	Type *ast.Class
	Slot int
}

type scope struct {
	vars     map[string]*Variable
	nextSlot int
}

type labelRange struct {
	start, end *asm.Label
}

// blockRecorder is an active finally block. ranges are the stretches of code
// it protects; inlined copies of the block itself are left out of them.
type blockRecorder struct {
	emit   func()
	ranges []labelRange
	open   *asm.Label
}

func (r *blockRecorder) startRange(l *asm.Label) {
	if r.open == nil {
		r.open = l
	}
}

func (r *blockRecorder) closeRange(l *asm.Label) {
	if r.open == nil {
		return
	}
	r.ranges = append(r.ranges, labelRange{r.open, l})
	r.open = nil
}

// jumpFrame is a loop or switch that break (and continue, for loops) target.
type jumpFrame struct {
	label     string
	brk       *asm.Label
	cont      *asm.Label
	finallies int
}

// CompileStack tracks scopes, slots, jump targets and pending finally blocks
// while one method body is lowered.
type CompileStack struct {
	scopes    []*scope
	next      int
	max       int
	frames    []*jumpFrame
	finallies []*blockRecorder
}

// NewCompileStack reserves slot 0 for this on instance methods and binds the
// parameters in order.
func NewCompileStack(static bool, params []*ast.Param) (*CompileStack, error) {
	cs := &CompileStack{}
	cs.PushScope()
	if !static {
		cs.reserve(1)
	}
	for _, p := range params {
		if _, err := cs.Define(p.Name, p.Type); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

func (cs *CompileStack) reserve(n int) int {
	slot := cs.next
	cs.next += n
	if cs.next > cs.max {
		cs.max = cs.next
	}
	return slot
}

func width(t *ast.Class) int {
	if t != nil && t.IsWide() {
		return 2
	}
	return 1
}

// PushScope opens a block scope.
func (cs *CompileStack) PushScope() {
	cs.scopes = append(cs.scopes, &scope{vars: map[string]*Variable{}, nextSlot: cs.next})
}

// PopScope closes the innermost scope and frees its slots.
func (cs *CompileStack) PopScope() {
	s := cs.scopes[len(cs.scopes)-1]
	cs.scopes = cs.scopes[:len(cs.scopes)-1]
	cs.next = s.nextSlot
}

// Define binds name in the innermost scope.
func (cs *CompileStack) Define(name string, typ *ast.Class) (*Variable, error) {
	s := cs.scopes[len(cs.scopes)-1]
	if _, ok := s.vars[name]; ok {
		return nil, fmt.Errorf("variable %q is already defined in this scope", name)
	}
	v := &Variable{Name: name, Type: typ, Slot: cs.reserve(width(typ))}
	s.vars[name] = v
	return v, nil
}

// Lookup resolves name from the innermost scope outwards.
func (cs *CompileStack) Lookup(name string) *Variable {
	for i := len(cs.scopes) - 1; i >= 0; i-- {
		if v, ok := cs.scopes[i].vars[name]; ok {
			return v
		}
	}
	return nil
}

// Temp allocates an unnamed slot in the innermost scope.
func (cs *CompileStack) Temp(typ *ast.Class) int {
	return cs.reserve(width(typ))
}

// MaxLocals is the high-water mark of allocated slots.
func (cs *CompileStack) MaxLocals() int { return cs.max }

// PushLoop registers a loop and returns its break and continue labels.
func (cs *CompileStack) PushLoop(label string) (brk, cont *asm.Label) {
	f := &jumpFrame{label: label, brk: asm.NewLabel(), cont: asm.NewLabel(), finallies: len(cs.finallies)}
	cs.frames = append(cs.frames, f)
	return f.brk, f.cont
}

// PushSwitch registers a switch and returns its break label.
func (cs *CompileStack) PushSwitch() *asm.Label {
	f := &jumpFrame{brk: asm.NewLabel(), finallies: len(cs.finallies)}
	cs.frames = append(cs.frames, f)
	return f.brk
}

// PopFrame removes the innermost loop or switch.
func (cs *CompileStack) PopFrame() {
	cs.frames = cs.frames[:len(cs.frames)-1]
}

func (cs *CompileStack) breakTarget(label string) (*jumpFrame, error) {
	for i := len(cs.frames) - 1; i >= 0; i-- {
		f := cs.frames[i]
		if label == "" || f.label == label {
			return f, nil
		}
	}
	if label == "" {
		return nil, fmt.Errorf("break outside of a loop or switch")
	}
	return nil, fmt.Errorf("break to unknown label %q", label)
}

func (cs *CompileStack) continueTarget(label string) (*jumpFrame, error) {
	for i := len(cs.frames) - 1; i >= 0; i-- {
		f := cs.frames[i]
		if f.cont == nil {
			continue
		}
		if label == "" || f.label == label {
			return f, nil
		}
	}
	if label == "" {
		return nil, fmt.Errorf("continue outside of a loop")
	}
	return nil, fmt.Errorf("continue to unknown label %q", label)
}

func (cs *CompileStack) pushFinally(emit func()) *blockRecorder {
	r := &blockRecorder{emit: emit}
	cs.finallies = append(cs.finallies, r)
	return r
}

func (cs *CompileStack) popFinally() {
	cs.finallies = cs.finallies[:len(cs.finallies)-1]
}

// HasFinally reports whether a finally block is pending.
func (cs *CompileStack) HasFinally() bool { return len(cs.finallies) > 0 }
