package domain

import (
	"crypto/rsa"
)

// TransitKey is the key discovery response: the public half of the key pair
// the client's credential is provisioned with, plus the identifier used to
// verify key identity on encrypted responses.
type TransitKey struct {
	KeyID         string `json:"keyId"`
	Algorithm     string `json:"algorithm"`
	HashAlgorithm string `json:"hashAlgorithm"`
	PublicKey     string `json:"publicKey"`
}

// KeyCacheEntry associates a caller credential with resolved key material.
//
// Entries live for the process lifetime: keys are assumed stable, so there is
// no TTL. Explicit invalidation requires constructing a new client. Entries
// are never mutated once populated.
type KeyCacheEntry struct {
	KeyID         string
	Algorithm     string
	HashAlgorithm string
	PublicKey     *rsa.PublicKey
}
