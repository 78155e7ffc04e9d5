package cryptox

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberChars    = "0123456789"
	symbolChars    = "!@#$%^&*()-_=+[]{};:,.?"

	defaultPasswordLength = 12
)

var ErrNoCharacterClass = errors.New("no character class selected")

// PasswordOptions selects the length and the character classes of a
// generated password.
type PasswordOptions struct {
	Length    int
	Lowercase bool
	Uppercase bool
	Numbers   bool
	Symbols   bool
}

// DefaultPasswordOptions enables every character class with a length of 12.
func DefaultPasswordOptions() PasswordOptions {
	return PasswordOptions{
		Length:    defaultPasswordLength,
		Lowercase: true,
		Uppercase: true,
		Numbers:   true,
		Symbols:   true,
	}
}

// CreatePassword generates a random password. Positions are filled by
// rotating through the enabled classes, so every class is present once the
// length reaches the number of classes; the result is then shuffled.
//
// Generated passwords are meant for seeding and admin-created accounts.
func CreatePassword(opts PasswordOptions) (string, error) {
	var classes []string
	if opts.Lowercase {
		classes = append(classes, lowercaseChars)
	}
	if opts.Uppercase {
		classes = append(classes, uppercaseChars)
	}
	if opts.Numbers {
		classes = append(classes, numberChars)
	}
	if opts.Symbols {
		classes = append(classes, symbolChars)
	}
	if len(classes) == 0 {
		return "", ErrNoCharacterClass
	}

	length := opts.Length
	if length <= 0 {
		length = defaultPasswordLength
	}

	out := make([]byte, length)
	for i := range out {
		class := classes[i%len(classes)]
		n, err := randInt(len(class))
		if err != nil {
			return "", err
		}
		out[i] = class[n]
	}

	// Fisher-Yates
	for i := len(out) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}

	return string(out), nil
}

func randInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
