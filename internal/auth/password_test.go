package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	digest, key, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.Len(t, key, digestKeyLen)
	assert.Len(t, digest, digestLen)

	assert.True(t, VerifyPassword("s3cret!", digest, key))
	assert.False(t, VerifyPassword("s3cret?", digest, key))
	assert.False(t, VerifyPassword("s3cret", digest, key))
	assert.False(t, VerifyPassword("", digest, key))
	assert.False(t, VerifyPassword("s3cret!", nil, key))
	assert.False(t, VerifyPassword("s3cret!", digest, nil))
}

func TestHashPasswordUsesFreshKey(t *testing.T) {
	d1, k1, err := HashPassword("same")
	require.NoError(t, err)
	d2, k2, err := HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, d1, d2)
	assert.False(t, VerifyPassword("same", d1, k2))
}
