package value

// Kind identifies one variant of the Value union.
type Kind uint8

const (
	Void Kind = iota
	Boolean
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
	Object
)

var kindNames = [...]string{
	Void:    "void",
	Boolean: "boolean",
	Byte:    "byte",
	Char:    "char",
	Short:   "short",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	Object:  "object",
}

var kindDescriptors = [...]byte{
	Void:    'V',
	Boolean: 'Z',
	Byte:    'B',
	Char:    'C',
	Short:   'S',
	Int:     'I',
	Long:    'J',
	Float:   'F',
	Double:  'D',
	Object:  'L',
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Descriptor returns the single-character type descriptor for k.
// Object returns 'L'; the class name is carried by Type.
func (k Kind) Descriptor() byte {
	if int(k) < len(kindDescriptors) {
		return kindDescriptors[k]
	}
	return '?'
}

// IsPrimitive reports whether k is a scalar kind other than void.
func (k Kind) IsPrimitive() bool {
	return k >= Boolean && k <= Double
}

// KindOf maps a descriptor character to its Kind. Both 'L' and '[' map to Object.
func KindOf(desc byte) (Kind, bool) {
	switch desc {
	case 'V':
		return Void, true
	case 'Z':
		return Boolean, true
	case 'B':
		return Byte, true
	case 'C':
		return Char, true
	case 'S':
		return Short, true
	case 'I':
		return Int, true
	case 'J':
		return Long, true
	case 'F':
		return Float, true
	case 'D':
		return Double, true
	case 'L', '[':
		return Object, true
	}
	return 0, false
}
