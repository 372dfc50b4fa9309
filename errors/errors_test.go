package errors

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinel(t *testing.T) {
	wrapped := Wrap(ErrNotFound, "tag ruby")

	assert.Contains(t, wrapped.Error(), "tag ruby")
	assert.True(t, IsNotFoundError(wrapped))
	assert.False(t, IsConflictError(wrapped))
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsRetryable(nil))
}

func TestStackTrace(t *testing.T) {
	err := NewNotFoundError("tag %q", "ruby")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
	assert.True(t, Is(err, ErrNotFound))
}

func TestUnknownContextError(t *testing.T) {
	err := NewUnknownContextError("taggable_model", "rotors")

	assert.True(t, Is(err, ErrUnknownContext))
	assert.Contains(t, err.Error(), `"rotors"`)
	assert.Contains(t, err.Error(), `"taggable_model"`)
	require.Len(t, GetAllHints(err), 1)
	assert.False(t, IsRetryable(err))
}

func TestTypeMismatchError(t *testing.T) {
	err := NewTypeMismatchError("gadget", "not registered")

	assert.True(t, Is(err, ErrTypeMismatch))
	assert.False(t, Is(err, ErrUnknownContext))
	assert.Contains(t, err.Error(), "not registered")
}

func TestPartialSyncError(t *testing.T) {
	t.Run("matches sentinel and cause", func(t *testing.T) {
		cause := Wrap(ErrSyncConflict, "tag ruby")
		var err error = &PartialSyncError{
			Context:   "skills",
			Unapplied: []string{"ruby", "rails"},
			Cause:     cause,
		}
		err = Wrap(err, "save tags")

		assert.True(t, Is(err, ErrPartialSync))
		assert.True(t, Is(err, ErrSyncConflict))
		assert.True(t, IsRetryable(err))

		var partial *PartialSyncError
		require.True(t, As(err, &partial))
		assert.Equal(t, []string{"ruby", "rails"}, partial.Unapplied)
		assert.Contains(t, err.Error(), "ruby, rails")
	})

	t.Run("without cause", func(t *testing.T) {
		err := &PartialSyncError{Context: "tags", Unapplied: []string{"x"}}

		assert.Equal(t, `partial tag synchronization on "tags": 1 value(s) not applied [x]`, err.Error())
		assert.Nil(t, err.Unwrap())
	})
}

func TestIsRetryable(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"sync conflict", Wrap(ErrSyncConflict, "find or create"), true},
		{"partial", &PartialSyncError{Context: "tags"}, true},
		{"unknown context", ErrUnknownContext, false},
		{"storage fault", Wrap(sql.ErrConnDone, "insert tagging"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func ExampleWrap() {
	err := Wrap(ErrConflict, "insert tag")
	fmt.Println(err)
	// Output: insert tag: resource conflict
}
