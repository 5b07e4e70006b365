package ast

import "github.com/chazu/groovypp/asm"

// ---------------------------------------------------------------------------
// Node interfaces
// ---------------------------------------------------------------------------

// Node is anything carrying a source line.
type Node interface {
	Pos() int
}

// Stmt is a typed statement.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is a typed expression. Type is the static type resolved upstream.
type Expr interface {
	Node
	Type() *Class
	exprNode()
}

// Position is embedded by every node.
type Position struct {
	Line int
}

func (p Position) Pos() int { return p.Line }

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Block is a statement list with its own variable scope.
type Block struct {
	Position
	Stmts []Stmt
}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	Position
	X Expr
}

// If is a conditional; Else may be nil.
type If struct {
	Position
	Cond Expr
	Then Stmt
	Else Stmt
}

// While loops while Cond holds.
type While struct {
	Position
	Label string
	Cond  Expr
	Body  Stmt
}

// DoWhile is a post-tested loop. It is rejected by the compiler.
type DoWhile struct {
	Position
	Label string
	Body  Stmt
	Cond  Expr
}

// ForIn iterates a collection.
type ForIn struct {
	Position
	Label      string
	Var        *Param
	Collection Expr
	Body       Stmt
}

// For is a C-style loop; any clause may be nil.
type For struct {
	Position
	Label  string
	Init   Expr
	Cond   Expr
	Update Expr
	Body   Stmt
}

// Switch compares X against each case top to bottom.
type Switch struct {
	Position
	X       Expr
	Cases   []*Case
	Default Stmt
}

// Case is one arm of a switch.
type Case struct {
	Position
	Value Expr
	Body  Stmt
}

// Try is try/catch/finally; Finally may be nil.
type Try struct {
	Position
	Body    Stmt
	Catches []*Catch
	Finally Stmt
}

// Catch binds the caught exception to Var.
type Catch struct {
	Position
	Var  *Param
	Body Stmt
}

// Synchronized runs Body holding Lock's monitor.
type Synchronized struct {
	Position
	Lock Expr
	Body Stmt
}

// Return leaves the method; X may be nil.
type Return struct {
	Position
	X Expr
}

// Throw raises X.
type Throw struct {
	Position
	X Expr
}

// Break leaves the innermost (or labelled) loop or switch.
type Break struct {
	Position
	Label string
}

// Continue restarts the innermost (or labelled) loop.
type Continue struct {
	Position
	Label string
}

// Assert throws AssertionError when Cond is false.
type Assert struct {
	Position
	Cond    Expr
	Message Expr
}

// Empty does nothing.
type Empty struct {
	Position
}

// BytecodeStmt replays pre-built instructions.
type BytecodeStmt struct {
	Position
	Insns []asm.Insn
}

func (*Block) stmtNode()        {}
func (*ExprStmt) stmtNode()     {}
func (*If) stmtNode()           {}
func (*While) stmtNode()        {}
func (*DoWhile) stmtNode()      {}
func (*ForIn) stmtNode()        {}
func (*For) stmtNode()          {}
func (*Switch) stmtNode()       {}
func (*Case) stmtNode()         {}
func (*Try) stmtNode()          {}
func (*Catch) stmtNode()        {}
func (*Synchronized) stmtNode() {}
func (*Return) stmtNode()       {}
func (*Throw) stmtNode()        {}
func (*Break) stmtNode()        {}
func (*Continue) stmtNode()     {}
func (*Assert) stmtNode()       {}
func (*Empty) stmtNode()        {}
func (*BytecodeStmt) stmtNode() {}

// IsEmpty reports whether s is nil, Empty or an empty Block.
func IsEmpty(s Stmt) bool {
	switch st := s.(type) {
	case nil:
		return true
	case *Empty:
		return true
	case *Block:
		return len(st.Stmts) == 0
	}
	return false
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// BinaryOp is the operator of a Binary expression.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryOpNames = [...]string{"+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=", "&&", "||"}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// IsComparison reports whether op yields a boolean from two operands.
func (op BinaryOp) IsComparison() bool { return op >= OpEq && op <= OpGe }

// Const is a literal. A nil Value with a reference type is null.
type Const struct {
	Position
	Value any
	Typ   *Class
}

// VarRef reads a variable. Field is set when the name resolved to a field.
type VarRef struct {
	Position
	Name  string
	Typ   *Class
	Field *Field
	This  bool
}

// Decl declares a local variable in the current scope.
type Decl struct {
	Position
	Name string
	Typ  *Class
	Init Expr
}

// Assign stores Value into Target (a VarRef or FieldAccess).
type Assign struct {
	Position
	Target Expr
	Value  Expr
}

// Binary applies a binary operator.
type Binary struct {
	Position
	Op          BinaryOp
	Left, Right Expr
	Typ         *Class
}

// Not negates a condition.
type Not struct {
	Position
	X Expr
}

// Ternary is cond ? then : else.
type Ternary struct {
	Position
	Cond, Then, Else Expr
	Typ              *Class
}

// Call invokes Method on Receiver. A nil Method means a dynamic call by Name.
// A nil Receiver targets this (or the owner for static methods).
type Call struct {
	Position
	Receiver Expr
	Method   *Method
	Name     string
	Args     []Expr
	Typ      *Class
	Super    bool
}

// FieldAccess reads a field; Receiver is nil for static fields and this.
type FieldAccess struct {
	Position
	Receiver Expr
	Field    *Field
	Typ      *Class
}

// New allocates and constructs an instance.
type New struct {
	Position
	Class *Class
	Ctor  *Method
	Args  []Expr
}

// SuperInit calls a superclass constructor on this.
type SuperInit struct {
	Position
	Ctor *Method
	Args []Expr
}

// Cast converts X to Typ.
type Cast struct {
	Position
	X   Expr
	Typ *Class
}

// Closure is a closure literal. Referenced lists the enclosing-scope
// variables the body uses. Target is the single-abstract-method type the
// closure is coerced to, or nil.
type Closure struct {
	Position
	Params     []*Param
	Code       Stmt
	Referenced []string
	Target     *Class
	Return     *Class
}

// Range is an integer range literal.
type Range struct {
	Position
	From, To  Expr
	Exclusive bool
}

// ClassLit is a class literal.
type ClassLit struct {
	Position
	Of *Class
}

// List is a list literal.
type List struct {
	Position
	Elems []Expr
	Typ   *Class
}

// BytecodeExpr pushes the result of pre-built instructions.
type BytecodeExpr struct {
	Position
	Insns []asm.Insn
	Typ   *Class
}

// EmptyExpr is an absent expression.
type EmptyExpr struct {
	Position
}

func (e *Const) Type() *Class {
	if e.Typ == nil {
		return NullType
	}
	return e.Typ
}
func (e *VarRef) Type() *Class  { return e.Typ }
func (e *Decl) Type() *Class    { return e.Typ }
func (e *Assign) Type() *Class  { return e.Target.Type() }
func (e *Binary) Type() *Class  { return e.Typ }
func (e *Not) Type() *Class     { return BooleanType }
func (e *Ternary) Type() *Class { return e.Typ }
func (e *Call) Type() *Class {
	if e.Typ != nil {
		return e.Typ
	}
	if e.Method != nil {
		return e.Method.Return
	}
	return ObjectType
}
func (e *FieldAccess) Type() *Class {
	if e.Typ != nil {
		return e.Typ
	}
	return e.Field.Type
}
func (e *New) Type() *Class       { return e.Class }
func (e *SuperInit) Type() *Class { return VoidType }
func (e *Cast) Type() *Class      { return e.Typ }
func (e *Closure) Type() *Class {
	if e.Target != nil {
		return e.Target
	}
	return ClosureType
}
func (e *Range) Type() *Class    { return IntRangeType }
func (e *ClassLit) Type() *Class { return ClassType }
func (e *List) Type() *Class {
	if e.Typ != nil {
		return e.Typ
	}
	return ArrayListType
}
func (e *BytecodeExpr) Type() *Class { return e.Typ }
func (e *EmptyExpr) Type() *Class    { return VoidType }

func (*Const) exprNode()        {}
func (*VarRef) exprNode()       {}
func (*Decl) exprNode()         {}
func (*Assign) exprNode()       {}
func (*Binary) exprNode()       {}
func (*Not) exprNode()          {}
func (*Ternary) exprNode()      {}
func (*Call) exprNode()         {}
func (*FieldAccess) exprNode()  {}
func (*New) exprNode()          {}
func (*SuperInit) exprNode()    {}
func (*Cast) exprNode()         {}
func (*Closure) exprNode()      {}
func (*Range) exprNode()        {}
func (*ClassLit) exprNode()     {}
func (*List) exprNode()         {}
func (*BytecodeExpr) exprNode() {}
func (*EmptyExpr) exprNode()    {}
