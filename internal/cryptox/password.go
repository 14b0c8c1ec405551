package cryptox

import "golang.org/x/crypto/bcrypt"

// bcryptCost keeps offline brute force expensive while an interactive
// login still completes well under a second.
const bcryptCost = 12

// HashPassword produces a self-describing bcrypt digest (algorithm, cost
// and salt are bundled in), so verification needs no external salt
// storage.
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether plaintext matches the stored digest.
// A malformed digest is treated as a non-match, never as a failure the
// caller has to handle.
func VerifyPassword(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
