// Package tokens issues and verifies one-time confirmation tokens for
// destructive admin links.
package tokens

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	cache "github.com/hashicorp/golang-lru"
)

// ActionDeleteEntry is the action bound to entry delete links
const ActionDeleteEntry = "delete_entry"

// consumedCacheSize bounds how many used tokens are remembered
const consumedCacheSize = 4096

var (
	ErrInvalid  = errors.New("invalid confirmation token")
	ErrExpired  = errors.New("confirmation token expired")
	ErrConsumed = errors.New("confirmation token already used")
)

type payload struct {
	Nonce    string `json:"n"`
	Action   string `json:"a"`
	Session  string `json:"s"`
	IssuedAt int64  `json:"t"`
}

// Manager signs tokens bound to an action and a session. A verified token is
// remembered and rejected when presented again.
type Manager struct {
	codec    *securecookie.SecureCookie
	consumed *cache.Cache
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a Manager whose tokens are signed and encrypted with keys
// derived from secret and stay valid for ttl.
func NewManager(secret []byte, ttl time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid token lifetime %s", ttl)
	}

	consumed, err := cache.New(consumedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumed token cache: %w", err)
	}

	hashKey, blockKey := deriveKeys(secret)
	codec := securecookie.New(hashKey, blockKey)
	codec = codec.SetSerializer(securecookie.JSONEncoder{})
	// Lifetime is enforced against IssuedAt so it follows the injected clock
	codec.MaxAge(0)

	return &Manager{
		codec:    codec,
		consumed: consumed,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// deriveKeys splits secret into independent signing and encryption keys
func deriveKeys(secret []byte) (hashKey, blockKey []byte) {
	derive := func(label string) []byte {
		sum := sha256.Sum256(append(append([]byte{}, secret...), label...))
		return sum[:]
	}
	return derive("hash"), derive("block")
}

// WithClock replaces the clock used to stamp and check tokens
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.now = clock
	return m
}

// Issue returns a new token for action in the given session
func (m *Manager) Issue(action, sessionID string) (string, error) {
	p := payload{
		Nonce:    uuid.NewString(),
		Action:   action,
		Session:  sessionID,
		IssuedAt: m.now().Unix(),
	}

	token, err := m.codec.Encode(action, p)
	if err != nil {
		return "", fmt.Errorf("failed to encode token: %w", err)
	}
	return token, nil
}

// Verify checks that token was issued for action in the given session, has
// not expired and has not been used. A token that passes is consumed.
func (m *Manager) Verify(token, action, sessionID string) error {
	if token == "" || sessionID == "" {
		return ErrInvalid
	}

	var p payload
	if err := m.codec.Decode(action, token, &p); err != nil {
		return ErrInvalid
	}
	if p.Action != action || p.Session != sessionID || p.Nonce == "" {
		return ErrInvalid
	}

	issued := time.Unix(p.IssuedAt, 0)
	if m.now().Sub(issued) > m.ttl {
		return ErrExpired
	}

	if seen, _ := m.consumed.ContainsOrAdd(p.Nonce, issued); seen {
		return ErrConsumed
	}
	return nil
}
