// Package token implements the patient access token codec. The canonical
// scheme reuses the patient's durable identifier as the token, so encoding
// and decoding are trivial; the package exists so the token format lives in
// exactly one place. Earlier deployments used synthetic composite tokens
// backed by a mapping table; those are not supported.
package token

import (
	"errors"
	"strings"
)

// ErrInvalidToken is returned when a scanned token cannot possibly be a
// patient identifier. Callers translate it to a not-found outcome.
var ErrInvalidToken = errors.New("invalid access token")

// maxLength is generous compared to a UUID (36 chars) to leave room for
// legacy numeric identifiers.
const maxLength = 64

// Encode derives the shareable access token for a patient identifier.
func Encode(patientID string) string {
	return patientID
}

// Decode recovers the patient identifier from a scanned token. The token is
// validated for shape only; existence is the directory's concern.
func Decode(tok string) (string, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > maxLength {
		return "", ErrInvalidToken
	}
	for _, r := range tok {
		if !isTokenRune(r) {
			return "", ErrInvalidToken
		}
	}
	return tok, nil
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-':
		return true
	}
	return false
}
