// Package crypto implements password hashing for the API double's accounts.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Params are Argon2id cost parameters.
type Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams are tuned for server-side hashing.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// Credential is a stored password: salt plus Argon2id key.
type Credential struct {
	Salt []byte
	Hash []byte
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns the Argon2id hash of password using salt.
func (p Params) HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

// NewCredential hashes password with a fresh random salt.
func (p Params) NewCredential(password string) (Credential, error) {
	salt, err := RandBytes(p.SaltLen)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Salt: salt, Hash: p.HashPassword([]byte(password), salt)}, nil
}

// Verify checks password against c in constant time.
func (p Params) Verify(c Credential, password string) bool {
	if len(c.Hash) == 0 {
		return false
	}
	got := p.HashPassword([]byte(password), c.Salt)
	return subtle.ConstantTimeCompare(got, c.Hash) == 1
}
