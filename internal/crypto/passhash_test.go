package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var cheap = Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	require.NoError(t, err)
	require.Len(t, a, n)
	b, err := RandBytes(n)
	require.NoError(t, err)
	require.False(t, bytes.Equal(a, b), "two subsequent RandBytes(%d) are equal", n)
	require.False(t, bytes.Equal(a, make([]byte, n)), "all zeros")
}

func TestHashPassword_DeterministicOnSameInput(t *testing.T) {
	t.Parallel()

	pw := []byte("p@ssw0rd")
	salt := []byte("NaCl-16-bytes?")

	h1 := cheap.HashPassword(pw, salt)
	require.NotEmpty(t, h1)
	require.Equal(t, h1, cheap.HashPassword(pw, salt))
	require.NotEqual(t, h1, cheap.HashPassword(pw, []byte("another-salt----")))
	require.NotEqual(t, h1, cheap.HashPassword([]byte("p@ssw0rd!"), salt))
	require.NotEqual(t, h1, DefaultParams.HashPassword(pw, salt))
}

func TestCredential(t *testing.T) {
	t.Parallel()

	c, err := cheap.NewCredential("correct horse battery staple")
	require.NoError(t, err)
	require.Len(t, c.Salt, 16)

	require.True(t, cheap.Verify(c, "correct horse battery staple"))
	require.False(t, cheap.Verify(c, "wrong"))
	require.False(t, cheap.Verify(c, ""))
	require.False(t, cheap.Verify(Credential{}, ""))

	other, err := cheap.NewCredential("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, c.Salt, other.Salt)
}
