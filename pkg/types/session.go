package types

// Session identifies the caller of an operation. The zero value is an
// unauthenticated session.
type Session struct {
	UID string
}

func NewSession(uid string) Session {
	return Session{UID: uid}
}

func (s Session) Authenticated() bool {
	return s.UID != ""
}

// Credentials are returned by the auth provider after a successful sign-in or sign-up.
type Credentials struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	IDToken string `json:"idToken,omitempty"`
}

func (c Credentials) Session() Session {
	return NewSession(c.UID)
}
