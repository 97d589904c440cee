package auth

import (
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"

	"github.com/matst80/securityapp/pkg/types"
)

const (
	CookieName = "sa-session"
	issuer     = "securityapp"
)

// Issuer signs and verifies the session tokens kept in the session cookie.
// Revocations are kept in process memory.
type Issuer struct {
	key     []byte
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// sessionClaims carries the issue time with full precision, iat is truncated to seconds.
type sessionClaims struct {
	jwt.RegisteredClaims
	IssuedNanos int64 `json:"iat_ns"`
}

func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	return &Issuer{key: key, ttl: ttl, now: time.Now, revoked: make(map[string]time.Time)}
}

// Revoke rejects every session of uid issued up to now.
func (i *Issuer) Revoke(uid string) {
	now := i.now()
	i.mu.Lock()
	defer i.mu.Unlock()
	for id, at := range i.revoked {
		if now.Sub(at) > i.ttl {
			delete(i.revoked, id)
		}
	}
	i.revoked[uid] = now
}

func (i *Issuer) revokedAfter(uid string, issued time.Time) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	at, ok := i.revoked[uid]
	return ok && !issued.After(at)
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) Issue(session types.Session) (string, error) {
	if !session.Authenticated() {
		return "", types.ErrNotAuthenticated
	}
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   session.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		IssuedNanos: now.UnixNano(),
	})
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", errors.Wrap(err, "sign session")
	}
	return signed, nil
}

func (i *Issuer) Parse(tokenString string) (types.Session, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.key, nil
	})
	if err != nil {
		return types.Session{}, errors.Wrap(types.ErrNotAuthenticated, err.Error())
	}
	if !token.Valid || claims.Subject == "" || !claims.VerifyIssuer(issuer, true) {
		return types.Session{}, types.ErrNotAuthenticated
	}
	if i.revokedAfter(claims.Subject, time.Unix(0, claims.IssuedNanos)) {
		return types.Session{}, errors.Wrap(types.ErrNotAuthenticated, "session revoked")
	}
	return types.NewSession(claims.Subject), nil
}
