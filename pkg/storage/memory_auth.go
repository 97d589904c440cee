package storage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/matst80/securityapp/pkg/types"
)

const usersFile = "auth.json"

type memoryUser struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"passwordHash"`
	PhotoURL     string `json:"photoUrl,omitempty"`
}

// MemoryAuth is an AuthProvider with bcrypt hashed passwords and opaque
// random identity tokens.
type MemoryAuth struct {
	mu     sync.RWMutex
	users  map[string]*memoryUser
	tokens map[string]string
	disk   *DiskStorage
	cost   int
}

func NewMemoryAuth() *MemoryAuth {
	return &MemoryAuth{
		users:  make(map[string]*memoryUser),
		tokens: make(map[string]string),
		cost:   bcrypt.DefaultCost,
	}
}

// NewPersistentMemoryAuth keeps registered users in auth.json. Tokens are not persisted.
func NewPersistentMemoryAuth(disk *DiskStorage) (*MemoryAuth, error) {
	a := NewMemoryAuth()
	a.disk = disk
	if err := disk.LoadJson(&a.users, usersFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load users")
	}
	if a.users == nil {
		a.users = make(map[string]*memoryUser)
	}
	return a, nil
}

// WithCost lowers the bcrypt cost, tests use bcrypt.MinCost.
func (a *MemoryAuth) WithCost(cost int) *MemoryAuth {
	a.cost = cost
	return a
}

func (a *MemoryAuth) save() error {
	if a.disk == nil {
		return nil
	}
	return a.disk.SaveJson(a.users, usersFile)
}

func newToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (a *MemoryAuth) issue(u *memoryUser) (types.Credentials, error) {
	token, err := newToken()
	if err != nil {
		return types.Credentials{}, err
	}
	a.tokens[token] = u.UID
	return types.Credentials{UID: u.UID, Email: u.Email, IDToken: token}, nil
}

func (a *MemoryAuth) SignUp(ctx context.Context, email, password string) (types.Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 6 {
		return types.Credentials{}, types.ErrInvalidSignUp
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return types.Credentials{}, errors.Wrap(err, "hash password")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.users[email]; exists {
		return types.Credentials{}, errors.Wrap(types.ErrInvalidSignUp, "email already registered")
	}
	u := &memoryUser{UID: uuid.NewString(), Email: email, PasswordHash: hash}
	a.users[email] = u
	if err := a.save(); err != nil {
		return types.Credentials{}, errors.Wrap(err, "save users")
	}
	return a.issue(u)
}

func (a *MemoryAuth) SignIn(ctx context.Context, email, password string) (types.Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[email]
	if !ok {
		return types.Credentials{}, types.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return types.Credentials{}, types.ErrInvalidCredentials
	}
	return a.issue(u)
}

func (a *MemoryAuth) SignOut(ctx context.Context, uid string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for token, owner := range a.tokens {
		if owner == uid {
			delete(a.tokens, token)
		}
	}
	return nil
}

func (a *MemoryAuth) VerifyToken(ctx context.Context, idToken string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	uid, ok := a.tokens[idToken]
	if !ok {
		return "", types.ErrNotAuthenticated
	}
	return uid, nil
}

func (a *MemoryAuth) DeleteUser(ctx context.Context, uid string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for email, u := range a.users {
		if u.UID == uid {
			delete(a.users, email)
			for token, owner := range a.tokens {
				if owner == uid {
					delete(a.tokens, token)
				}
			}
			return a.save()
		}
	}
	return types.ErrNotFound
}

func (a *MemoryAuth) SetPhotoURL(ctx context.Context, uid, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range a.users {
		if u.UID == uid {
			u.PhotoURL = url
			return a.save()
		}
	}
	return types.ErrNotFound
}

// PhotoURL returns the photo url set for uid.
func (a *MemoryAuth) PhotoURL(uid string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, u := range a.users {
		if u.UID == uid {
			return u.PhotoURL
		}
	}
	return ""
}
