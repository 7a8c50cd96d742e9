package orm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign(t *testing.T) {
	t.Run("text from bytes", func(t *testing.T) {
		var s string
		require.NoError(t, Assign(&s, []byte("Alice")))
		assert.Equal(t, "Alice", s)
	})

	t.Run("integer widths", func(t *testing.T) {
		var n int
		require.NoError(t, Assign(&n, int64(42)))
		assert.Equal(t, 42, n)

		var id int64
		require.NoError(t, Assign(&id, []byte("7")))
		assert.Equal(t, int64(7), id)
	})

	t.Run("null into pointer", func(t *testing.T) {
		v := new(int64)
		require.NoError(t, Assign(&v, nil))
		assert.Nil(t, v)

		var s *string
		require.NoError(t, Assign(&s, "x"))
		require.NotNil(t, s)
		assert.Equal(t, "x", *s)
	})

	t.Run("null into plain field", func(t *testing.T) {
		s := "stale"
		require.NoError(t, Assign(&s, nil))
		assert.Empty(t, s)
	})

	t.Run("time", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		var got time.Time
		require.NoError(t, Assign(&got, now))
		assert.True(t, now.Equal(got))
	})

	t.Run("bad integer", func(t *testing.T) {
		var n int
		assert.Error(t, Assign(&n, "abc"))
	})

	t.Run("unsupported destination", func(t *testing.T) {
		var u uint8
		assert.Error(t, Assign(&u, int64(1)))
	})
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Math", Normalize([]byte("Math")))
	assert.Equal(t, int64(3), Normalize(3))
	assert.Nil(t, Normalize(nil))
}

func TestDeref(t *testing.T) {
	var p *int
	assert.Nil(t, deref(p))
	n := 5
	assert.Equal(t, 5, deref(&n))
	assert.Equal(t, "plain", deref("plain"))
}
