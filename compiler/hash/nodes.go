package hash

// ---------------------------------------------------------------------------
// Frozen fingerprint records.
//
// These mirror asm.Insn and the ast declarations with process-local
// identity removed: labels become indices in order of first reference, and
// classes are referred to by name. Two classes compiled to the same code in
// different runs produce identical records.
// ---------------------------------------------------------------------------

// HInsn is one normalized instruction.
type HInsn struct {
	Tag    byte
	Op     byte
	Arg    int64
	Arg2   int64
	Owner  string
	Name   string
	Desc   string
	Const  any
	Labels []uint32
	Keys   []int64
}

// HMethod is a normalized method. Body is nil for methods without code.
type HMethod struct {
	Name      string
	Desc      string
	Flags     uint32
	MaxStack  int64
	MaxLocals int64
	Body      []HInsn
}

// HField is a normalized field.
type HField struct {
	Name  string
	Desc  string
	Flags uint32
}

// HClass is a normalized class.
type HClass struct {
	Name       string
	Super      string
	Interfaces []string
	Flags      uint32
	Fields     []HField
	Methods    []HMethod
}
