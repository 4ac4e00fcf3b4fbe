package arglist

import (
	"sync"

	"github.com/wippyai/vmbridge/value"
)

const poolInitCap = 8

var bufPool = sync.Pool{
	New: func() any {
		buf := make([]value.Value, 0, poolInitCap)
		return &buf
	},
}

func getBuf(n int) *[]value.Value {
	buf := bufPool.Get().(*[]value.Value)
	if cap(*buf) < n {
		*buf = make([]value.Value, n)
		return buf
	}
	*buf = (*buf)[:n]
	clear(*buf)
	return buf
}

func putBuf(buf *[]value.Value) {
	if buf == nil || cap(*buf) > MaxArgs {
		return // reject oversized
	}
	*buf = (*buf)[:0]
	bufPool.Put(buf)
}
