package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	require.NoError(t, fe.Err())

	fe.Add("name", "name is required")
	fe.Add("name", "name is too long")
	fe.Add("days", "unsupported window")

	err := fe.Err()
	var vErr *Error
	require.True(t, errors.As(err, &vErr))
	require.Len(t, vErr.Fields["name"], 2)
	require.Equal(t, []string{"days", "name"}, fe.Keys())

	var nilFields FieldErrors
	nilFields.Add("x", "ignored")
	require.NoError(t, nilFields.Err())
}

func TestNew(t *testing.T) {
	err := New(map[string]string{"code": "malformed"})
	var vErr *Error
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, []string{"malformed"}, vErr.Fields["code"])
}
