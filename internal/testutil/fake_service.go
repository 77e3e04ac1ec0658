// Package testutil provides an in-process fake of the remote anonymization
// service for tests: substitution-based anonymize/restore with correlation
// mappings, TTL enforcement, and the transit encryption endpoints.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Substitution is one sensitive value the fake service knows how to replace.
type Substitution struct {
	Original    string
	Placeholder string
	Category    string
}

// Counts tracks how many times each endpoint was hit.
type Counts struct {
	Anonymize int
	Restore   int
	Discovery int
}

// mapping is one stored correlation mapping.
type mapping struct {
	substitutions []Substitution
	expiresAt     time.Time
}

// FakeService is an in-process anonymization service backed by httptest.
//
// It replaces configured substitutions in anonymize requests, stores the
// reversible mapping under a fresh mapping id, and reverses it on restore.
// When constructed with a transit key it also serves key discovery and
// handles encrypted request and response payloads.
type FakeService struct {
	credential string
	key        *rsa.PrivateKey
	keyID      string
	subs       []Substitution

	mu       sync.Mutex
	mappings map[string]mapping
	counts   Counts

	server *httptest.Server
}

// Option customizes the fake service.
type Option func(*FakeService)

// WithTransitKey provisions the transit key pair served by key discovery and
// used for encrypted payloads.
func WithTransitKey(key *rsa.PrivateKey, keyID string) Option {
	return func(s *FakeService) {
		s.key = key
		s.keyID = keyID
	}
}

// WithSubstitutions configures the sensitive values the service replaces.
func WithSubstitutions(subs ...Substitution) Option {
	return func(s *FakeService) {
		s.subs = subs
	}
}

// NewFakeService starts a fake service requiring the given bearer credential.
// Callers must Close it.
func NewFakeService(credential string, opts ...Option) *FakeService {
	s := &FakeService{
		credential: credential,
		mappings:   make(map[string]mapping),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(requestid.New())
	engine.Use(s.authenticate)
	engine.POST("/v1/anonymize", s.handleAnonymize)
	engine.POST("/v1/restore", s.handleRestore)
	engine.GET("/v1/transit-crypto/inbound-public-key", s.handleKeyDiscovery)

	s.server = httptest.NewServer(engine)
	return s
}

// URL returns the service origin.
func (s *FakeService) URL() string {
	return s.server.URL
}

// Close shuts the service down.
func (s *FakeService) Close() {
	s.server.Close()
}

// Counts returns a snapshot of per-endpoint hit counts.
func (s *FakeService) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// ExpireMapping force-expires a stored mapping, for TTL tests.
func (s *FakeService) ExpireMapping(mappingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.mappings[mappingID]; ok {
		m.expiresAt = time.Now().Add(-time.Second)
		s.mappings[mappingID] = m
	}
}

// authenticate enforces the bearer credential on every endpoint.
func (s *FakeService) authenticate(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+s.credential {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid credential"})
		return
	}
	c.Next()
}

// payload mirrors the client's string-or-object union.
type payload struct {
	Text      string
	Value     string
	Encrypted bool
	KeyID     string
}

// UnmarshalJSON accepts a plain string or an encrypted field object.
func (p *payload) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		p.Text = text
		return nil
	}
	var field struct {
		Value     string `json:"value"`
		Encrypted bool   `json:"encrypted"`
		KeyID     string `json:"keyId"`
	}
	if err := json.Unmarshal(data, &field); err != nil {
		return err
	}
	p.Value = field.Value
	p.Encrypted = field.Encrypted
	p.KeyID = field.KeyID
	return nil
}

// plaintext resolves the payload to plain text, decrypting when needed.
func (s *FakeService) plaintext(p payload) (string, bool) {
	if !p.Encrypted {
		return p.Text, true
	}
	if s.key == nil || p.KeyID != s.keyID {
		return "", false
	}
	ciphertext, err := base64.StdEncoding.DecodeString(p.Value)
	if err != nil {
		return "", false
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, s.key, ciphertext, nil)
	if err != nil {
		return "", false
	}
	return string(plain), true
}

func (s *FakeService) handleAnonymize(c *gin.Context) {
	s.mu.Lock()
	s.counts.Anonymize++
	s.mu.Unlock()

	var req struct {
		Prompt payload `json:"prompt"`
		TTL    int     `json:"ttl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "malformed request body"})
		return
	}
	if req.TTL < 0 || req.TTL > 86400 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "ttl out of range"})
		return
	}

	prompt, ok := s.plaintext(req.Prompt)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "undecryptable prompt"})
		return
	}

	safe := prompt
	var applied []Substitution
	categories := make(map[string]bool)
	replaced := 0
	for _, sub := range s.subs {
		count := strings.Count(safe, sub.Original)
		if count == 0 {
			continue
		}
		safe = strings.ReplaceAll(safe, sub.Original, sub.Placeholder)
		applied = append(applied, sub)
		categories[sub.Category] = true
		replaced += count
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = 3600
	}

	mappingID := uuid.NewString()
	s.mu.Lock()
	s.mappings[mappingID] = mapping{
		substitutions: applied,
		expiresAt:     time.Now().Add(time.Duration(ttl) * time.Second),
	}
	s.mu.Unlock()

	types := make([]string, 0, len(categories))
	for category := range categories {
		types = append(types, category)
	}

	c.JSON(http.StatusOK, gin.H{
		"safePrompt": safe,
		"mappingId":  mappingID,
		"stats": gin.H{
			"replaced": replaced,
			"types":    types,
		},
	})
}

func (s *FakeService) handleRestore(c *gin.Context) {
	s.mu.Lock()
	s.counts.Restore++
	s.mu.Unlock()

	var req struct {
		MappingID       string  `json:"mappingId"`
		Output          payload `json:"output"`
		EncryptResponse bool    `json:"encryptResponse"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "malformed request body"})
		return
	}

	s.mu.Lock()
	m, ok := s.mappings[req.MappingID]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "mapping not found"})
		return
	}
	if time.Now().After(m.expiresAt) {
		c.JSON(http.StatusGone, gin.H{"message": "mapping expired"})
		return
	}

	output, decrypted := s.plaintext(req.Output)
	if !decrypted {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "undecryptable output"})
		return
	}

	restored := output
	for _, sub := range m.substitutions {
		restored = strings.ReplaceAll(restored, sub.Placeholder, sub.Original)
	}

	// Token consumed on successful restore.
	s.mu.Lock()
	delete(s.mappings, req.MappingID)
	s.mu.Unlock()

	if !req.EncryptResponse || s.key == nil {
		c.JSON(http.StatusOK, gin.H{"output": restored})
		return
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &s.key.PublicKey, []byte(restored), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "encryption failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"output": gin.H{
			"value":     base64.StdEncoding.EncodeToString(ciphertext),
			"encrypted": true,
			"keyId":     s.keyID,
		},
		"encrypted":     true,
		"keyId":         s.keyID,
		"algorithm":     "RSA-OAEP",
		"hashAlgorithm": "SHA-256",
	})
}

func (s *FakeService) handleKeyDiscovery(c *gin.Context) {
	s.mu.Lock()
	s.counts.Discovery++
	s.mu.Unlock()

	if s.key == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "no transit key provisioned"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"keyId":         s.keyID,
		"algorithm":     "RSA-OAEP",
		"hashAlgorithm": "SHA-256",
		"publicKey":     PublicKeyPEM(&s.key.PublicKey),
	})
}

// GenerateKeyPair generates an RSA key pair for tests.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}

// PrivateKeyPEM encodes a private key as PKCS#8 PEM.
func PrivateKeyPEM(key *rsa.PrivateKey) string {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		panic(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

// PublicKeyPEM encodes a public key as PKIX PEM.
func PublicKeyPEM(key *rsa.PublicKey) string {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		panic(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}
