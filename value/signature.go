package value

import (
	"strings"

	"github.com/wippyai/vmbridge/errors"
)

// maxDims is the deepest array nesting a descriptor may declare.
const maxDims = 255

// Type is a parsed field type. For arrays Kind and Class describe the element
// and Dims is the nesting depth.
type Type struct {
	Class string
	Kind  Kind
	Dims  int
}

var (
	TypeVoid    = Type{Kind: Void}
	TypeBoolean = Type{Kind: Boolean}
	TypeByte    = Type{Kind: Byte}
	TypeChar    = Type{Kind: Char}
	TypeShort   = Type{Kind: Short}
	TypeInt     = Type{Kind: Int}
	TypeLong    = Type{Kind: Long}
	TypeFloat   = Type{Kind: Float}
	TypeDouble  = Type{Kind: Double}
	TypeObject  = ClassType("java/lang/Object")
	TypeString  = ClassType("java/lang/String")
)

// ClassType returns the reference type for a slash-separated class name.
func ClassType(name string) Type {
	return Type{Kind: Object, Class: name}
}

// ArrayOf returns an array type with elem as its component.
func ArrayOf(elem Type) Type {
	elem.Dims++
	return elem
}

// IsArray reports whether t is an array type.
func (t Type) IsArray() bool { return t.Dims > 0 }

// ValueKind is the kind of the Value union carrying t: Object for arrays.
func (t Type) ValueKind() Kind {
	if t.Dims > 0 {
		return Object
	}
	return t.Kind
}

// Elem returns the component type of an array type.
func (t Type) Elem() Type {
	if t.Dims > 0 {
		t.Dims--
	}
	return t
}

// Descriptor renders t in descriptor notation.
func (t Type) Descriptor() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t Type) String() string { return t.Descriptor() }

func (t Type) write(b *strings.Builder) {
	for i := 0; i < t.Dims; i++ {
		b.WriteByte('[')
	}
	if t.Kind == Object {
		b.WriteByte('L')
		b.WriteString(t.Class)
		b.WriteByte(';')
		return
	}
	b.WriteByte(t.Kind.Descriptor())
}

// MethodSignature is a parsed method descriptor.
type MethodSignature struct {
	Params []Type
	Return Type
}

// String renders the descriptor, e.g. "(IJ)Ljava/lang/String;".
func (s MethodSignature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range s.Params {
		p.write(&b)
	}
	b.WriteByte(')')
	s.Return.write(&b)
	return b.String()
}

// ParseMethodSignature parses a method descriptor such as "(IZLjava/lang/Object;)I".
func ParseMethodSignature(sig string) (MethodSignature, error) {
	var ms MethodSignature
	if len(sig) == 0 || sig[0] != '(' {
		return ms, errors.BadSignature(sig, 0, "expected '('")
	}
	pos := 1
	for {
		if pos >= len(sig) {
			return ms, errors.BadSignature(sig, pos, "unterminated parameter list")
		}
		if sig[pos] == ')' {
			pos++
			break
		}
		t, next, err := parseType(sig, pos, false)
		if err != nil {
			return ms, err
		}
		ms.Params = append(ms.Params, t)
		pos = next
	}
	ret, next, err := parseType(sig, pos, true)
	if err != nil {
		return ms, err
	}
	if next != len(sig) {
		return ms, errors.BadSignature(sig, next, "trailing characters after return type")
	}
	ms.Return = ret
	return ms, nil
}

// ParseFieldType parses a single field descriptor such as "[J" or "Ljava/lang/String;".
func ParseFieldType(desc string) (Type, error) {
	t, next, err := parseType(desc, 0, false)
	if err != nil {
		return t, err
	}
	if next != len(desc) {
		return t, errors.BadSignature(desc, next, "trailing characters after field type")
	}
	return t, nil
}

func parseType(sig string, pos int, allowVoid bool) (Type, int, error) {
	var t Type
	for pos < len(sig) && sig[pos] == '[' {
		t.Dims++
		pos++
	}
	if t.Dims > maxDims {
		return t, pos, errors.BadSignature(sig, pos, "too many array dimensions")
	}
	if pos >= len(sig) {
		return t, pos, errors.BadSignature(sig, pos, "missing type")
	}
	c := sig[pos]
	switch c {
	case 'L':
		end := strings.IndexByte(sig[pos:], ';')
		if end <= 1 {
			return t, pos, errors.BadSignature(sig, pos, "malformed class name")
		}
		t.Kind = Object
		t.Class = sig[pos+1 : pos+end]
		return t, pos + end + 1, nil
	case 'V':
		if !allowVoid || t.Dims > 0 {
			return t, pos, errors.BadSignature(sig, pos, "void is only valid as a return type")
		}
		t.Kind = Void
		return t, pos + 1, nil
	}
	k, ok := KindOf(c)
	if !ok || k == Object {
		return t, pos, errors.BadSignature(sig, pos, "unknown descriptor '"+string(c)+"'")
	}
	t.Kind = k
	return t, pos + 1, nil
}

// SignatureFor builds the descriptor of a method returning ret and taking args.
func SignatureFor(ret Type, args ...Typed) MethodSignature {
	ms := MethodSignature{Return: ret, Params: make([]Type, len(args))}
	for i, a := range args {
		ms.Params[i] = a.Type
	}
	return ms
}

// Decode reads one value per parameter from va and tags it with the parameter type.
func (s MethodSignature) Decode(va *VaList) ([]Typed, error) {
	if va.Remaining() < len(s.Params) {
		return nil, errors.New(errors.PhaseMarshal, errors.KindOutOfBounds).
			Signature(s.String()).
			Detail("argument block holds %d values, signature needs %d", va.Remaining(), len(s.Params)).
			Build()
	}
	out := make([]Typed, len(s.Params))
	for i, p := range s.Params {
		out[i] = Typed{Type: p, Value: va.Next()}
	}
	return out, nil
}
