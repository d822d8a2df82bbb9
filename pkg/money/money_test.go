package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "25.00", Format(2500))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "0.00", Format(0))
	assert.Equal(t, "-1.50", Format(-150))
}

func TestParse(t *testing.T) {
	t.Run("合法金额", func(t *testing.T) {
		v, err := Parse("100.00")
		require.NoError(t, err)
		assert.Equal(t, int64(10000), v)

		v, err = Parse("0.1")
		require.NoError(t, err)
		assert.Equal(t, int64(10), v)
	})

	t.Run("三位小数被拒绝", func(t *testing.T) {
		_, err := Parse("1.005")
		assert.Error(t, err)
	})

	t.Run("非数字", func(t *testing.T) {
		_, err := Parse("abc")
		assert.Error(t, err)
	})
}

func TestMulQuantity(t *testing.T) {
	v, ok := MulQuantity(2500, 2)
	assert.True(t, ok)
	assert.Equal(t, int64(5000), v)

	_, ok = MulQuantity(math.MaxInt64/2+1, 2)
	assert.False(t, ok)
}

func TestAdd(t *testing.T) {
	v, ok := Add(1, 2)
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	_, ok = Add(math.MaxInt64, 1)
	assert.False(t, ok)
}
