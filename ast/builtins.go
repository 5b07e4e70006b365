package ast

// Well-known types. Only the structure the compiler relies on is modelled.
var (
	ObjectType = &Class{Name: "java.lang.Object", Kind: KindClass, Modifiers: ModPublic}

	VoidType    = primitive("void")
	BooleanType = primitive("boolean")
	ByteType    = primitive("byte")
	CharType    = primitive("char")
	ShortType   = primitive("short")
	IntType     = primitive("int")
	LongType    = primitive("long")
	FloatType   = primitive("float")
	DoubleType  = primitive("double")

	// ImproveType is the return type of methods whose result type is
	// inferred from their body.
	ImproveType = &Class{Name: "<improve>", Kind: KindImprove}
	// NullType is the static type of the null literal.
	NullType = &Class{Name: "<null>", Kind: KindNull}

	CloneableType    = NewInterface("java.lang.Cloneable")
	SerializableType = NewInterface("java.io.Serializable")
	ComparableType   = NewInterface("java.lang.Comparable")
	CharSequenceType = NewInterface("java.lang.CharSequence")

	NumberType      = NewClass("java.lang.Number", ModPublic|ModAbstract, ObjectType, SerializableType)
	StringType      = NewClass("java.lang.String", ModPublic|ModFinal, ObjectType, SerializableType, ComparableType, CharSequenceType)
	ClassType       = NewClass("java.lang.Class", ModPublic|ModFinal, ObjectType, SerializableType)
	ThrowableType   = NewClass("java.lang.Throwable", ModPublic, ObjectType, SerializableType)
	ErrorType       = NewClass("java.lang.Error", ModPublic, ThrowableType)
	ExceptionType   = NewClass("java.lang.Exception", ModPublic, ThrowableType)
	RuntimeExcType  = NewClass("java.lang.RuntimeException", ModPublic, ExceptionType)
	AssertErrorType = NewClass("java.lang.AssertionError", ModPublic, ErrorType)

	BooleanWrapper   = NewClass("java.lang.Boolean", ModPublic|ModFinal, ObjectType, SerializableType, ComparableType)
	ByteWrapper      = NewClass("java.lang.Byte", ModPublic|ModFinal, NumberType, ComparableType)
	CharacterWrapper = NewClass("java.lang.Character", ModPublic|ModFinal, ObjectType, SerializableType, ComparableType)
	ShortWrapper     = NewClass("java.lang.Short", ModPublic|ModFinal, NumberType, ComparableType)
	IntegerWrapper   = NewClass("java.lang.Integer", ModPublic|ModFinal, NumberType, ComparableType)
	LongWrapper      = NewClass("java.lang.Long", ModPublic|ModFinal, NumberType, ComparableType)
	FloatWrapper     = NewClass("java.lang.Float", ModPublic|ModFinal, NumberType, ComparableType)
	DoubleWrapper    = NewClass("java.lang.Double", ModPublic|ModFinal, NumberType, ComparableType)
	VoidWrapper      = NewClass("java.lang.Void", ModPublic|ModFinal, ObjectType)

	IterableType  = genericInterface("java.lang.Iterable", "T")
	IteratorType  = genericInterface("java.util.Iterator", "E")
	CollectionTyp = genericInterface("java.util.Collection", "E")
	ListType      = genericInterface("java.util.List", "E")
	ArrayListType = NewClass("java.util.ArrayList", ModPublic, ObjectType)
	RangeType     = genericInterface("groovy.lang.Range", "T")
	IntRangeType  = NewClass("groovy.lang.IntRange", ModPublic, ObjectType)

	GroovyObjectType     = NewInterface("groovy.lang.GroovyObject")
	GeneratedClosureType = NewInterface("org.codehaus.groovy.runtime.GeneratedClosure")
	ClosureType          = NewClass("groovy.lang.Closure", ModPublic|ModAbstract, ObjectType, GroovyObjectType, CloneableType)

	// MissingMethodHandlerType is the capability interface implemented by
	// closure classes that forward unknown member access to their owner.
	MissingMethodHandlerType = NewInterface("groovypp.lang.MissingMethodHandler")

	InvokerHelperType = NewClass("org.codehaus.groovy.runtime.InvokerHelper", ModPublic, ObjectType)
	DTTType           = NewClass("org.codehaus.groovy.runtime.typehandling.DefaultTypeTransformation", ModPublic, ObjectType)
	DGMType           = NewClass("org.codehaus.groovy.runtime.DefaultGroovyMethods", ModPublic, ObjectType)
)

func primitive(name string) *Class {
	return &Class{Name: name, Kind: KindPrimitive, Modifiers: ModPublic | ModFinal}
}

func genericInterface(name string, vars ...string) *Class {
	c := NewInterface(name)
	for _, v := range vars {
		c.GenericParams = append(c.GenericParams, &GenericParam{Name: v, Bound: ObjectType})
	}
	return c
}

var wrappers map[*Class]*Class

func init() {
	wrappers = map[*Class]*Class{
		BooleanType: BooleanWrapper,
		ByteType:    ByteWrapper,
		CharType:    CharacterWrapper,
		ShortType:   ShortWrapper,
		IntType:     IntegerWrapper,
		LongType:    LongWrapper,
		FloatType:   FloatWrapper,
		DoubleType:  DoubleWrapper,
		VoidType:    VoidWrapper,
	}

	e := TypeVar("E")
	CollectionTyp.Interfaces = []*Class{Parameterize(IterableType, e)}
	ListType.Interfaces = []*Class{Parameterize(CollectionTyp, e)}
	ArrayListType.Interfaces = []*Class{Parameterize(ListType, ObjectType)}

	t := TypeVar("T")
	RangeType.Interfaces = []*Class{Parameterize(ListType, t)}
	IntRangeType.Interfaces = []*Class{Parameterize(RangeType, IntegerWrapper)}

	iterator := &Method{Name: "iterator", Owner: IterableType, Return: Parameterize(IteratorType, TypeVar("T")), Modifiers: ModPublic | ModAbstract}
	IterableType.Methods = append(IterableType.Methods, iterator)
	IteratorType.Methods = append(IteratorType.Methods,
		&Method{Name: "hasNext", Owner: IteratorType, Return: BooleanType, Modifiers: ModPublic | ModAbstract},
		&Method{Name: "next", Owner: IteratorType, Return: TypeVar("E"), Modifiers: ModPublic | ModAbstract},
	)
	ListType.Methods = append(ListType.Methods,
		&Method{Name: "add", Owner: ListType, Return: BooleanType, Params: []*Param{{Name: "e", Type: TypeVar("E")}}, Modifiers: ModPublic | ModAbstract},
	)
	MissingMethodHandlerType.Methods = append(MissingMethodHandlerType.Methods,
		&Method{Name: "methodMissing", Owner: MissingMethodHandlerType, Return: ObjectType, Modifiers: ModPublic | ModAbstract,
			Params: []*Param{{Name: "name", Type: StringType}, {Name: "args", Type: ObjectType}}},
	)

	ctor(ObjectType)
	ctor(ArrayListType)
	ctor(ClosureType, &Param{Name: "owner", Type: ObjectType}, &Param{Name: "thisObject", Type: ObjectType})
	ctor(AssertErrorType, &Param{Name: "detail", Type: ObjectType})
	ctor(IntRangeType, &Param{Name: "from", Type: IntType}, &Param{Name: "to", Type: IntType})
}

func ctor(c *Class, params ...*Param) {
	c.Constructors = append(c.Constructors, &Method{Name: "<init>", Owner: c, Params: params, Return: VoidType, Modifiers: ModPublic})
}

// Constructor returns the declared constructor taking n parameters, or nil.
func (c *Class) Constructor(n int) *Method {
	for _, m := range c.Base().Constructors {
		if len(m.Params) == n {
			return m
		}
	}
	return nil
}

// Wrap returns the wrapper of a primitive type, or t itself.
func Wrap(t *Class) *Class {
	if t == nil {
		return ObjectType
	}
	if w, ok := wrappers[t.Base()]; ok {
		return w
	}
	return t
}

// Unwrap returns the primitive behind a wrapper type, or t itself.
func Unwrap(t *Class) *Class {
	b := t.Base()
	for p, w := range wrappers {
		if w == b && p != VoidType {
			return p
		}
	}
	return t
}

// IsNumericPrimitive reports whether t is a primitive other than boolean/void.
func IsNumericPrimitive(t *Class) bool {
	switch t.Base() {
	case ByteType, CharType, ShortType, IntType, LongType, FloatType, DoubleType:
		return true
	}
	return false
}

// IsWrapper reports whether t is a primitive wrapper class.
func IsWrapper(t *Class) bool {
	return Unwrap(t) != t
}
