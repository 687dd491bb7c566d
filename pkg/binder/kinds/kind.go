package kinds

type Kind int

const (
	Unknown Kind = iota
	Void
	Null
	Dynamic
	Object
	Bool
	Char
	String
	Symbol
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Single
	Double
	Decimal
	BigInteger
	Array
	Class
	Interface
	Delegate
	TypeParameter
	Box
	Nullable
	Tuple
)

func (k Kind) IsInteger() bool {
	return k >= Int8 && k <= UInt64 || k == BigInteger
}

func (k Kind) IsNumeric() bool {
	return k >= Int8 && k <= BigInteger
}

func (k Kind) IsSigned() bool {
	switch k {
	case Int8, Int16, Int32, Int64, Single, Double, Decimal, BigInteger:
		return true
	default:
		return false
	}
}

func (k Kind) IsUnsigned() bool {
	switch k {
	case UInt8, UInt16, UInt32, UInt64:
		return true
	default:
		return false
	}
}

// Width is the bit width of fixed-width numeric kinds and 0 for everything else.
func (k Kind) Width() int {
	switch k {
	case Int8, UInt8:
		return 8
	case Int16, UInt16, Char:
		return 16
	case Int32, UInt32, Single:
		return 32
	case Int64, UInt64, Double:
		return 64
	case Decimal:
		return 128
	default:
		return 0
	}
}

// IsPrimitive reports whether values of the kind are immediate values rather than references.
func (k Kind) IsPrimitive() bool {
	return k == Bool || k == Char || (k.IsNumeric() && k != BigInteger)
}

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Null:
		return "nil"
	case Dynamic:
		return "dynamic"
	case Object:
		return "object"
	case Bool:
		return "bool"
	case Char:
		return "char"
	case String:
		return "string"
	case Symbol:
		return "symbol"
	case Int8:
		return "int8"
	case UInt8:
		return "uint8"
	case Int16:
		return "int16"
	case UInt16:
		return "uint16"
	case Int32:
		return "int32"
	case UInt32:
		return "uint32"
	case Int64:
		return "int64"
	case UInt64:
		return "uint64"
	case Single:
		return "single"
	case Double:
		return "double"
	case Decimal:
		return "decimal"
	case BigInteger:
		return "bignum"
	case Array:
		return "array"
	case Class:
		return "class"
	case Interface:
		return "interface"
	case Delegate:
		return "delegate"
	case TypeParameter:
		return "typeparam"
	case Box:
		return "box"
	case Nullable:
		return "nullable"
	case Tuple:
		return "tuple"
	default:
		return "<unknown>"
	}
}
