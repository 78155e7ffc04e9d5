package cryptox

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_DeterministicWithSalt(t *testing.T) {
	first, err := HashPassword("pass1234", "c2FsdA==")
	require.NoError(t, err)

	second, err := HashPassword("pass1234", "c2FsdA==")
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, "c2FsdA==", first.Salt)
	assert.Len(t, first.Hash, 128, "64-byte key hex encoded")

	_, err = hex.DecodeString(first.Hash)
	assert.NoError(t, err)
}

func TestHashPassword_GeneratesSalt(t *testing.T) {
	h, err := HashPassword("pass1234", "")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(h.Salt)
	require.NoError(t, err)
	assert.Len(t, raw, saltSize)

	other, err := HashPassword("pass1234", "")
	require.NoError(t, err)
	assert.NotEqual(t, h.Salt, other.Salt)
	assert.NotEqual(t, h.Hash, other.Hash)
}

func TestHashPassword_DifferentPasswordsDiffer(t *testing.T) {
	a, err := HashPassword("pass1234", "salt")
	require.NoError(t, err)
	b, err := HashPassword("pass1235", "salt")
	require.NoError(t, err)

	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestCheckPassword(t *testing.T) {
	h, err := HashPassword("pass1234", "")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"matching", "pass1234", true},
		{"wrong", "pass12345", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := CheckPassword(tt.password, h.Salt, h.Hash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestTokenFormats(t *testing.T) {
	urlToken, err := CreateURLToken()
	require.NoError(t, err)
	assert.Len(t, urlToken, urlTokenSize*2)

	xsrf, err := CreateXsrfToken()
	require.NoError(t, err)
	assert.Len(t, xsrf, xsrfTokenSize*2)

	refresh, err := CreateRefreshToken()
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(refresh)
	require.NoError(t, err)
	assert.Len(t, raw, refreshTokenSize)

	id, err := CreateUUID()
	require.NoError(t, err)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
	WipeByteArray(nil)
}

func TestCreatePassword(t *testing.T) {
	pw, err := CreatePassword(DefaultPasswordOptions())
	require.NoError(t, err)
	assert.Len(t, pw, defaultPasswordLength)

	assert.True(t, strings.ContainsAny(pw, lowercaseChars))
	assert.True(t, strings.ContainsAny(pw, uppercaseChars))
	assert.True(t, strings.ContainsAny(pw, numberChars))
	assert.True(t, strings.ContainsAny(pw, symbolChars))
}

func TestCreatePassword_SingleClass(t *testing.T) {
	pw, err := CreatePassword(PasswordOptions{Length: 20, Numbers: true})
	require.NoError(t, err)
	assert.Len(t, pw, 20)
	for _, r := range pw {
		assert.Contains(t, numberChars, string(r))
	}
}

func TestCreatePassword_NoClass(t *testing.T) {
	_, err := CreatePassword(PasswordOptions{Length: 8})
	assert.ErrorIs(t, err, ErrNoCharacterClass)
}
