package jvm

import (
	"strconv"

	"github.com/wippyai/vmbridge/arglist"
	"github.com/wippyai/vmbridge/env"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

var typeClass = value.ClassType("java/lang/Class")

// marshaled is a boxed argument list plus the temporary strings created for it.
type marshaled struct {
	list  *arglist.List
	typed []value.Typed
	temps []value.Ref
}

// marshal boxes Go arguments. Strings become managed String objects,
// *Object and *Class pass their refs with their declared types.
func marshal(e *env.Env, args []any) (*marshaled, error) {
	m := &marshaled{typed: make([]value.Typed, len(args))}
	for i, a := range args {
		switch x := a.(type) {
		case *Object:
			if x == nil {
				m.typed[i] = value.OfObject(value.Null, value.TypeObject)
				continue
			}
			m.typed[i] = value.OfObject(x.Ref(), x.Type())
		case *Class:
			if x == nil {
				m.typed[i] = value.OfObject(value.Null, typeClass)
				continue
			}
			m.typed[i] = value.OfObject(x.Ref(), typeClass)
		case string:
			s := e.NewStringUTF(x)
			m.temps = append(m.temps, s)
			m.typed[i] = value.OfObject(s, value.TypeString)
		default:
			t, err := value.Box(a)
			if err != nil {
				if be, ok := err.(*errors.Error); ok {
					be.Path = []string{"args", strconv.Itoa(i)}
				}
				m.free(e)
				return nil, err
			}
			m.typed[i] = t
		}
	}
	list, err := arglist.FromTyped(m.typed...)
	if err != nil {
		m.free(e)
		return nil, err
	}
	m.list = list
	return m, nil
}

func (m *marshaled) free(e *env.Env) {
	if m.list != nil {
		_ = m.list.Release()
		m.list = nil
	}
	for _, r := range m.temps {
		e.DeleteLocalRef(r)
	}
	m.temps = nil
}
