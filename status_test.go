package vmbridge

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/vmbridge/errors"
)

func TestStatusErr(t *testing.T) {
	require.NoError(t, OK.Err(errors.PhaseInvoke, "Call"))

	err := ErrNoMemory.Err(errors.PhaseHandle, "PushLocalFrame")
	require.Error(t, err)
	var be *errors.Error
	require.True(t, stderrors.As(err, &be))
	require.Equal(t, errors.PhaseHandle, be.Phase)
	require.Equal(t, errors.KindStatus, be.Kind)
	require.Equal(t, int32(-4), be.Value)
	require.Contains(t, err.Error(), "PushLocalFrame returned status -4")
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{OK, "ok"},
		{ErrDetached, "thread detached"},
		{ErrVersion, "version error"},
		{ErrInvalid, "invalid arguments"},
		{Status(-42), "status -42"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.s.String())
	}
}

func TestRefTypeString(t *testing.T) {
	require.Equal(t, "local", LocalRefType.String())
	require.Equal(t, "global", GlobalRefType.String())
	require.Equal(t, "invalid", InvalidRefType.String())
}
