package require

import (
	"testing"

	"github.com/alecthomas/assert"
)

// a subset of github.com/stretchr/testify/require on top of
// github.com/alecthomas/assert, whose checks already FailNow()
// on failure. Only the functions used in this repo.

// NoError asserts that a function returned no error (i.e. `nil`).
//
//	s, err := linestore.Open[any](path, nil)
//	require.NoError(t, err)
func NoError(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	assert.NoError(t, err, msgAndArgs...)
}

// Error asserts that a function returned an error (i.e. not `nil`).
func Error(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Error(t, err, msgAndArgs...)
}

// Equal asserts that two objects are equal.
//
//	require.Equal(t, 2, s.Len())
func Equal(t testing.TB, expected interface{}, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, expected, actual, msgAndArgs...)
}

// True asserts that the specified value is true.
func True(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, value, msgAndArgs...)
}

// NotNil asserts that the specified object is not nil.
func NotNil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.NotNil(t, object, msgAndArgs...)
}
