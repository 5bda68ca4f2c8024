package cryptox

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testPepper(t *testing.T) {
	t.Helper()
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
	t.Cleanup(func() { SetPepperPath(filepath.Join(t.TempDir(), "pepper")) })
}

func TestHashAndVerifyPassword(t *testing.T) {
	testPepper(t)

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifyPassword("correct horse battery staple", hash))
	require.ErrorIs(t, VerifyPassword("wrong password", hash), ErrPasswordMismatch)
}

func TestHashIsSalted(t *testing.T) {
	testPepper(t)

	a, err := HashPassword("same-input")
	require.NoError(t, err)
	b, err := HashPassword("same-input")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	testPepper(t)

	cases := []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
	}
	for _, c := range cases {
		require.Error(t, VerifyPassword("whatever", c), "hash: %q", c)
	}
}

func TestPepperPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pepper")
	SetPepperPath(path)
	first := GetPepper()

	// Re-pointing at the same file must yield the same pepper.
	SetPepperPath(path)
	require.Equal(t, first, GetPepper())
}
