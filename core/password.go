package core

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt work factor. 12 keeps a single hash in the low hundreds of
// milliseconds on current server hardware.
const defaultBcryptCost = 12

// PasswordHasher produces and verifies salted one-way password digests.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher with the production cost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: defaultBcryptCost}
}

// newPasswordHasherWithCost is used by tests to keep hashing fast.
func newPasswordHasherWithCost(cost int) *PasswordHasher {
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt digest of plaintext. The salt is generated per
// call and embedded in the digest.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Any mismatch,
// including a malformed digest, reads as false.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
