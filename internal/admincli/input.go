package admincli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

// GetPassword prints prompt to w and reads a password from the terminal
// without echo. A newline is printed after the read to keep the UI tidy.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// confirmPassword reads the password twice and requires both reads to match.
func confirmPassword(w io.Writer) ([]byte, error) {
	first, err := GetPassword(w, "Enter password: ")
	if err != nil {
		return nil, err
	}
	second, err := GetPassword(w, "Repeat password: ")
	if err != nil {
		cryptox.WipeByteArray(first)
		return nil, err
	}
	defer cryptox.WipeByteArray(second)

	if len(first) == 0 {
		return nil, errors.New("password must not be empty")
	}
	if !bytes.Equal(first, second) {
		cryptox.WipeByteArray(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}
