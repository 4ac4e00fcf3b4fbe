package arglist

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/value"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{"empty", 0, false},
		{"small", 3, false},
		{"max", MaxArgs, false},
		{"negative", -1, true},
		{"too large", MaxArgs + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.capacity)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, l, "failed construction must not leave a list behind")
				require.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseMarshal, Kind: errors.KindAllocation})
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.capacity, l.Len())
			for i := 0; i < l.Len(); i++ {
				require.True(t, l.Get(i).IsZero(), "entry %d not zeroed", i)
			}
			require.NoError(t, l.Release())
		})
	}
}

func TestList_InBounds(t *testing.T) {
	vals := []value.Value{
		value.IntValue(42),
		value.BoolValue(true),
		value.ObjValue(0x10001),
		value.DoubleValue(2.5),
	}
	l, err := Of(vals...)
	require.NoError(t, err)
	defer l.Release()

	for i, want := range vals {
		require.Equal(t, want, l.Get(i), "index %d", i)
	}
	require.Equal(t, int32(42), l.Get(0).Int())
	require.True(t, l.Get(1).Bool())
	require.Equal(t, value.Ref(0x10001), l.Get(2).Object())
	require.Equal(t, 2.5, l.Get(3).Double())
}

func TestList_Boundary(t *testing.T) {
	l, err := Of(value.IntValue(1), value.IntValue(2), value.IntValue(3))
	require.NoError(t, err)
	defer l.Release()

	last := l.Len() - 1
	require.Equal(t, int32(3), l.Get(last).Int(), "i = L-1 is the last valid entry")
	require.True(t, l.Get(l.Len()).IsZero(), "i = L reads the zero value")
	require.True(t, l.Get(l.Len()+10).IsZero())
	require.True(t, l.Get(-1).IsZero())

	require.True(t, l.InBounds(last))
	require.False(t, l.InBounds(l.Len()))
	require.False(t, l.Set(l.Len(), value.IntValue(9)))
	require.True(t, l.Set(last, value.IntValue(9)))
	require.Equal(t, int32(9), l.Get(last).Int())
}

func TestList_SingleRelease(t *testing.T) {
	l, err := New(2)
	require.NoError(t, err)
	l.Set(0, value.LongValue(7))

	require.NoError(t, l.Release())
	require.True(t, l.Released())
	require.Equal(t, 0, l.Len())
	require.Nil(t, l.Values())
}

func TestFromTyped(t *testing.T) {
	l, err := FromTyped(value.OfInt(5), value.OfFloat(1.5), value.OfObject(3, value.TypeString))
	require.NoError(t, err)
	defer l.Release()

	require.Equal(t, 3, l.Len())
	require.Equal(t, int32(5), l.Get(0).Int())
	require.Equal(t, float32(1.5), l.Get(1).Float())
	require.Equal(t, value.Ref(3), l.Get(2).Object())
}

func TestValues_Contiguous(t *testing.T) {
	l, err := Of(value.IntValue(1), value.IntValue(2))
	require.NoError(t, err)
	defer l.Release()

	block := l.Values()
	require.Len(t, block, 2)
	block[1] = value.IntValue(20)
	require.Equal(t, int32(20), l.Get(1).Int(), "Values aliases the list")
}

func TestPool_NoStaleData(t *testing.T) {
	for i := 0; i < 16; i++ {
		l, err := Of(value.IntValue(int32(i+1)), value.IntValue(int32(i+2)))
		require.NoError(t, err)
		require.NoError(t, l.Release())

		fresh, err := New(2)
		require.NoError(t, err)
		require.True(t, fresh.Get(0).IsZero())
		require.True(t, fresh.Get(1).IsZero())
		require.NoError(t, fresh.Release())
	}
}

func BenchmarkListRoundTrip(b *testing.B) {
	for i := 0; i < b.N; i++ {
		l, _ := New(4)
		l.Set(0, value.IntValue(int32(i)))
		_ = l.Get(0)
		_ = l.Release()
	}
}
