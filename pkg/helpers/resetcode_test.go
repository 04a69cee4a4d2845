package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenResetCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenResetCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Regexp(t, `^[0-9]{6}$`, code)
		seen[code] = true
	}
	// 50 draws from a million-code space should essentially never all collide.
	assert.Greater(t, len(seen), 1)
}

func TestHashResetCode(t *testing.T) {
	h := HashResetCode("123456")

	assert.Len(t, h, 64) // sha256 hex
	assert.Equal(t, h, HashResetCode("123456"))
	assert.NotEqual(t, h, HashResetCode("123457"))
	assert.NotContains(t, h, "123456")
}
