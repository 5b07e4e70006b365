package asm

import "strings"

// ---------------------------------------------------------------------------
// Chain
// ---------------------------------------------------------------------------

// Stages selects which peephole stages run.
type Stages struct {
	DupStore bool
	Boxing   bool
	LoadPop  bool
}

// AllStages enables every stage.
var AllStages = Stages{DupStore: true, Boxing: true, LoadPop: true}

// NewOptimizer puts the enabled stages in front of next, in the order
// dup/store, boxing, load/pop. With no stage enabled it returns next.
func NewOptimizer(next MethodVisitor, s Stages) MethodVisitor {
	mv := next
	if s.LoadPop {
		mv = NewLoadPopRemover(mv)
	}
	if s.Boxing {
		mv = NewBoxingRemover(mv)
	}
	if s.DupStore {
		mv = NewDupStoreRemover(mv)
	}
	return mv
}

// ---------------------------------------------------------------------------
// Dup/store elision
// ---------------------------------------------------------------------------

// DupStoreRemover folds "dup; store X; pop" into "store X". A DUP or DUP2 is
// held back; a following local or static store is held with it; a matching
// POP/POP2 then drops the dup and emits only the store. Anything else flushes
// the held instructions in order first.
type DupStoreRemover struct {
	Adapter
	dup   Opcode
	store *Insn
}

// NewDupStoreRemover returns the stage in front of next.
func NewDupStoreRemover(next MethodVisitor) *DupStoreRemover {
	r := &DupStoreRemover{}
	r.Next = next
	r.step = r.visit
	r.end = r.flush
	return r
}

func (r *DupStoreRemover) visit(in Insn) {
	switch {
	case in.Kind == KindInsn && (in.Op == DUP || in.Op == DUP2):
		r.flush()
		r.dup = in.Op
	case in.Kind == KindInsn && (in.Op == POP || in.Op == POP2):
		if r.store != nil && popMatches(r.dup, in.Op) {
			store := *r.store
			r.dup, r.store = 0, nil
			r.Forward(store)
			return
		}
		r.flush()
		r.Forward(in)
	case r.dup != 0 && r.store == nil && isFoldableStore(in):
		held := in
		r.store = &held
	default:
		r.flush()
		r.Forward(in)
	}
}

func (r *DupStoreRemover) flush() {
	if r.dup != 0 {
		r.Forward(Op(r.dup))
		r.dup = 0
	}
	if r.store != nil {
		r.Forward(*r.store)
		r.store = nil
	}
}

func popMatches(dup, pop Opcode) bool {
	return (dup == DUP && pop == POP) || (dup == DUP2 && pop == POP2)
}

// Array stores never qualify: only local stores and PUTSTATIC consume
// exactly the duplicated value.
func isFoldableStore(in Insn) bool {
	switch in.Kind {
	case KindVar:
		return in.Op.IsVarStore()
	case KindField:
		return in.Op == PUTSTATIC
	}
	return false
}

// ---------------------------------------------------------------------------
// Boxing elision
// ---------------------------------------------------------------------------

// BoxingRemover drops a box immediately followed by the matching unbox, and
// turns "box; pop" into a pop of the primitive value.
type BoxingRemover struct {
	Adapter
	box *Insn
}

// NewBoxingRemover returns the stage in front of next.
func NewBoxingRemover(next MethodVisitor) *BoxingRemover {
	r := &BoxingRemover{}
	r.Next = next
	r.step = r.visit
	r.end = r.flush
	return r
}

func (r *BoxingRemover) visit(in Insn) {
	if r.box != nil {
		prim := boxedPrimitive(*r.box)
		switch {
		case unboxedPrimitive(in) == prim:
			r.box = nil
			return
		case in.Kind == KindInsn && in.Op == POP:
			r.box = nil
			if prim == 'J' || prim == 'D' {
				r.Forward(Op(POP2))
			} else {
				r.Forward(Op(POP))
			}
			return
		}
		r.flush()
	}
	if boxedPrimitive(in) != 0 {
		held := in
		r.box = &held
		return
	}
	r.Forward(in)
}

func (r *BoxingRemover) flush() {
	if r.box != nil {
		r.Forward(*r.box)
		r.box = nil
	}
}

var wrapperOwners = map[string]byte{
	"java/lang/Boolean":   'Z',
	"java/lang/Byte":      'B',
	"java/lang/Character": 'C',
	"java/lang/Short":     'S',
	"java/lang/Integer":   'I',
	"java/lang/Long":      'J',
	"java/lang/Float":     'F',
	"java/lang/Double":    'D',
}

// boxedPrimitive returns the descriptor char of the primitive boxed by in,
// or 0 if in is not a Wrapper.valueOf(prim) call.
func boxedPrimitive(in Insn) byte {
	if in.Kind != KindMethod || in.Op != INVOKESTATIC || in.Name != "valueOf" {
		return 0
	}
	prim, ok := wrapperOwners[in.Owner]
	if !ok || len(in.Desc) < 3 || in.Desc[0] != '(' || in.Desc[2] != ')' || in.Desc[1] != prim {
		return 0
	}
	return prim
}

// unboxedPrimitive recognizes Wrapper.xValue() and the runtime xUnbox(Object)
// helpers.
func unboxedPrimitive(in Insn) byte {
	if in.Kind != KindMethod || len(in.Desc) < 3 {
		return 0
	}
	ret := in.Desc[len(in.Desc)-1]
	switch {
	case in.Op == INVOKEVIRTUAL && strings.HasSuffix(in.Name, "Value") && strings.HasPrefix(in.Desc, "()"):
		if prim, ok := wrapperOwners[in.Owner]; ok && prim == ret {
			return ret
		}
	case in.Op == INVOKESTATIC && strings.HasSuffix(in.Name, "Unbox") && strings.HasPrefix(in.Desc, "(Ljava/lang/Object;)"):
		return ret
	}
	return 0
}

// ---------------------------------------------------------------------------
// Load/pop elision
// ---------------------------------------------------------------------------

// LoadPopRemover drops a side-effect free push immediately popped.
type LoadPopRemover struct {
	Adapter
	load *Insn
}

// NewLoadPopRemover returns the stage in front of next.
func NewLoadPopRemover(next MethodVisitor) *LoadPopRemover {
	r := &LoadPopRemover{}
	r.Next = next
	r.step = r.visit
	r.end = r.flush
	return r
}

func (r *LoadPopRemover) visit(in Insn) {
	if r.load != nil && in.Kind == KindInsn {
		wide := r.load.IsWidePush()
		if (in.Op == POP && !wide) || (in.Op == POP2 && wide) {
			r.load = nil
			return
		}
	}
	r.flush()
	if isPurePush(in) {
		held := in
		r.load = &held
		return
	}
	r.Forward(in)
}

func (r *LoadPopRemover) flush() {
	if r.load != nil {
		r.Forward(*r.load)
		r.load = nil
	}
}

func isPurePush(in Insn) bool {
	switch in.Kind {
	case KindVar:
		return in.Op.IsVarLoad()
	case KindLdc:
		return true
	case KindInt:
		return in.Op == BIPUSH || in.Op == SIPUSH
	case KindInsn:
		return in.Op >= ACONST_NULL && in.Op <= DCONST_1
	}
	return false
}
