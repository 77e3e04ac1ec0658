// Package service implements the stateless cryptographic codec and the key
// resolution service for the transit encryption overlay.
package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/allisson/promptshield/internal/transit/domain"
)

// PEM block types accepted by the structural validators. A key in the wrong
// category (e.g. a private key passed where a public key is expected) fails
// validation before any cryptographic attempt.
var (
	publicKeyBlockTypes  = map[string]bool{"PUBLIC KEY": true, "RSA PUBLIC KEY": true}
	privateKeyBlockTypes = map[string]bool{"PRIVATE KEY": true, "RSA PRIVATE KEY": true}
)

// Encrypt encrypts plaintext with RSA-OAEP using SHA-256 for both the digest
// and the mask-generation hash, returning base64 ciphertext.
//
// OAEP padding is randomized: encrypting the same plaintext twice does not
// produce identical ciphertext. Empty plaintext encrypts successfully.
func Encrypt(plaintext string, publicKey *rsa.PublicKey) (string, error) {
	if publicKey == nil {
		return "", domain.ErrInvalidPublicKey
	}
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, publicKey, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEncryptFailure, err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. It fails with a decryption error, never partial
// output, if the ciphertext does not correspond to the given key or the
// OAEP padding is invalid.
func Decrypt(ciphertextBase64 string, privateKey *rsa.PrivateKey) (string, error) {
	if privateKey == nil {
		return "", domain.ErrInvalidPrivateKey
	}
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextBase64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64 ciphertext", domain.ErrDecryptFailure)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, privateKey, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryptFailure, err)
	}
	return string(plaintext), nil
}

// ValidatePublicKeyPEM reports whether text is structurally valid PEM public
// key material. This is a format check only: it does not verify the key is
// cryptographically valid or matches any other key.
func ValidatePublicKeyPEM(text string) bool {
	block, _ := pem.Decode([]byte(text))
	return block != nil && publicKeyBlockTypes[block.Type]
}

// ValidatePrivateKeyPEM reports whether text is structurally valid PEM
// private key material. This is a format check only.
func ValidatePrivateKeyPEM(text string) bool {
	block, _ := pem.Decode([]byte(text))
	return block != nil && privateKeyBlockTypes[block.Type]
}

// ParsePublicKey parses PEM public key material into an RSA public key.
// Both PKIX ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY") encodings are accepted.
func ParsePublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil || !publicKeyBlockTypes[block.Type] {
		return nil, domain.ErrInvalidPublicKey
	}

	if block.Type == "RSA PUBLIC KEY" {
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPublicKey, err)
		}
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPublicKey, err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", domain.ErrInvalidPublicKey)
	}
	return key, nil
}

// ParsePrivateKey parses PEM private key material into an RSA private key.
// Both PKCS#8 ("PRIVATE KEY") and PKCS#1 ("RSA PRIVATE KEY") encodings are accepted.
func ParsePrivateKey(pemText string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil || !privateKeyBlockTypes[block.Type] {
		return nil, domain.ErrInvalidPrivateKey
	}

	if block.Type == "RSA PRIVATE KEY" {
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPrivateKey, err)
		}
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPrivateKey, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", domain.ErrInvalidPrivateKey)
	}
	return key, nil
}
