package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/types"
)

type ContextValue string

var contextSession = ContextValue("session")

// TokenVerifier checks identity tokens issued by the auth backend.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (string, error)
}

// Middleware resolves the caller from the session cookie or a bearer token.
// Requests without valid credentials continue with an unauthenticated session.
type Middleware struct {
	issuer   *Issuer
	verifier TokenVerifier
	secure   bool
}

func NewMiddleware(issuer *Issuer, verifier TokenVerifier, secureCookies bool) *Middleware {
	return &Middleware{issuer: issuer, verifier: verifier, secure: secureCookies}
}

func WithSession(ctx context.Context, session types.Session) context.Context {
	return context.WithValue(ctx, contextSession, session)
}

func SessionFromContext(ctx context.Context) types.Session {
	session, _ := ctx.Value(contextSession).(types.Session)
	return session
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func (m *Middleware) resolve(r *http.Request) types.Session {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		if session, err := m.issuer.Parse(cookie.Value); err == nil {
			return session
		}
	}
	token := bearerToken(r)
	if token == "" {
		return types.Session{}
	}
	if session, err := m.issuer.Parse(token); err == nil {
		return session
	}
	if m.verifier == nil {
		return types.Session{}
	}
	uid, err := m.verifier.VerifyToken(r.Context(), token)
	if err != nil {
		log.Printf("rejected bearer token: %v", err)
		return types.Session{}
	}
	return types.NewSession(uid)
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), m.resolve(r))))
	})
}

// SetCookie stores a freshly issued session token on the response.
func (m *Middleware) SetCookie(w http.ResponseWriter, session types.Session) error {
	token, err := m.issuer.Issue(session)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  m.issuer.now().Add(m.issuer.TTL()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Revoke ends every session token issued to uid so far.
func (m *Middleware) Revoke(uid string) {
	m.issuer.Revoke(uid)
}

func (m *Middleware) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
}
