package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	digest, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", digest)

	assert.True(t, h.Verify(digest, "correct horse"))
	assert.False(t, h.Verify(digest, "correct horsE"))
	assert.False(t, h.Verify("not-a-digest", "correct horse"))

	again, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, digest, again, "digests must be salted")
}

func TestBcryptHasherNeedsRehash(t *testing.T) {
	low := BcryptHasher{Cost: bcrypt.MinCost}
	digest, err := low.Hash("password123")
	require.NoError(t, err)

	assert.False(t, low.NeedsRehash(digest))
	assert.True(t, BcryptHasher{Cost: bcrypt.MinCost + 1}.NeedsRehash(digest))
	assert.False(t, low.NeedsRehash("garbage"))
}
