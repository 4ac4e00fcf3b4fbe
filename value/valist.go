package value

// VaList is a cursor over a native variadic argument block. Reads past the
// end yield the zero Value.
type VaList struct {
	vals []Value
	pos  int
}

// NewVaList wraps vals without copying.
func NewVaList(vals []Value) *VaList {
	return &VaList{vals: vals}
}

// Next returns the next value and advances the cursor.
func (l *VaList) Next() Value {
	if l == nil || l.pos >= len(l.vals) {
		return Value{}
	}
	v := l.vals[l.pos]
	l.pos++
	return v
}

func (l *VaList) Bool() bool      { return l.Next().Bool() }
func (l *VaList) Byte() int8      { return l.Next().Byte() }
func (l *VaList) Char() uint16    { return l.Next().Char() }
func (l *VaList) Short() int16    { return l.Next().Short() }
func (l *VaList) Int() int32      { return l.Next().Int() }
func (l *VaList) Long() int64     { return l.Next().Long() }
func (l *VaList) Float() float32  { return l.Next().Float() }
func (l *VaList) Double() float64 { return l.Next().Double() }
func (l *VaList) Object() Ref     { return l.Next().Object() }

// Len returns the total number of values in the block.
func (l *VaList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.vals)
}

// Remaining returns how many values have not been read.
func (l *VaList) Remaining() int {
	if l == nil {
		return 0
	}
	return len(l.vals) - l.pos
}

// Reset rewinds the cursor to the first value.
func (l *VaList) Reset() {
	if l != nil {
		l.pos = 0
	}
}
