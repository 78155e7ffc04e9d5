// Package cryptox implements credential hashing and the random identifiers
// used by accounts and sessions: salts, url-tokens, UUIDs, refresh and XSRF
// tokens, and generated passwords.
package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize         = 128
	urlTokenSize     = 32
	refreshTokenSize = 128
	xsrfTokenSize    = 64

	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
)

// Hash is the result of HashPassword: the hex encoded derived key and the
// salt it was derived with.
type Hash struct {
	Hash string
	Salt string
}

// HashPassword derives a verifiable hash from password. When salt is empty a
// fresh one is generated.
//
// The password is first run through HMAC-SHA256 keyed by the salt, then the
// hex digest goes through scrypt with the same salt. The result is
// deterministic for a given password and salt.
func HashPassword(password, salt string) (*Hash, error) {
	if salt == "" {
		s, err := CreateSalt()
		if err != nil {
			return nil, fmt.Errorf("error creating salt: %w", err)
		}
		salt = s
	}

	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(password))
	digest := hex.EncodeToString(mac.Sum(nil))

	key, err := scrypt.Key([]byte(digest), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("error deriving key: %w", err)
	}

	return &Hash{Hash: hex.EncodeToString(key), Salt: salt}, nil
}

// CheckPassword recomputes the hash of password with salt and compares it
// with hash in constant time.
func CheckPassword(password, salt, hash string) (bool, error) {
	candidate, err := HashPassword(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(candidate.Hash), []byte(hash)) == 1, nil
}

// CreateSalt returns 128 random bytes, base64 encoded.
func CreateSalt() (string, error) {
	return randBase64(saltSize)
}

// CreateURLToken returns 32 random bytes, hex encoded.
func CreateURLToken() (string, error) {
	return MakeRandHexString(urlTokenSize)
}

// CreateUUID returns a random (version 4) UUID.
func CreateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// CreateRefreshToken returns 128 random bytes, base64 encoded.
func CreateRefreshToken() (string, error) {
	return randBase64(refreshTokenSize)
}

// CreateXsrfToken returns 64 random bytes, hex encoded.
func CreateXsrfToken() (string, error) {
	return MakeRandHexString(xsrfTokenSize)
}

func randBase64(size int) (string, error) {
	b, err := GenerateRandByteArray(size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
