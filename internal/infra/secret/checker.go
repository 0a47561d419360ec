package secret

import (
	"crypto/sha256"
	"crypto/subtle"
	"sync/atomic"
)

// Checker compares presented passwords with the configured one.
type Checker struct {
	configured string
	hashed     bool
	plain      [sha256.Size]byte
	accepted   atomic.Pointer[[sha256.Size]byte]
}

// NewChecker creates a Checker for configured, which is either plaintext or
// an Argon2id hash. An empty string disables authentication.
func NewChecker(configured string) *Checker {
	c := &Checker{configured: configured, hashed: IsHash(configured)}
	if !c.hashed {
		c.plain = digest(configured)
	}
	return c
}

// Enabled reports whether a password is configured.
func (c *Checker) Enabled() bool {
	return c.configured != ""
}

// Check reports whether given matches. It always succeeds when no password
// is configured.
func (c *Checker) Check(given string) bool {
	if !c.Enabled() {
		return true
	}
	d := digest(given)
	if !c.hashed {
		return subtle.ConstantTimeCompare(d[:], c.plain[:]) == 1
	}
	if ok := c.accepted.Load(); ok != nil && subtle.ConstantTimeCompare(d[:], ok[:]) == 1 {
		return true
	}
	if !Verify(given, c.configured) {
		return false
	}
	c.accepted.Store(&d)
	return true
}
