package types

import (
	"github.com/go-faster/errors"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSignUp      = errors.New("invalid sign up")
	ErrNotFound           = errors.New("not found")
)
