package firebase

import (
	"context"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/matst80/securityapp/pkg/types"
)

// Auth implements types.AuthProvider with Firebase Authentication. The admin
// SDK cannot check passwords, sign-in goes through the identity toolkit api
// with the project's web api key.
type Auth struct {
	client  *auth.Client
	toolkit *identitytoolkit.Service
}

func (a *App) Auth(ctx context.Context) (*Auth, error) {
	client, err := a.app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "auth client")
	}
	ret := &Auth{client: client}
	if a.opts.APIKey == "" {
		log.Printf("no firebase api key configured, password sign-in is disabled")
		return ret, nil
	}
	ret.toolkit, err = identitytoolkit.NewService(ctx, option.WithAPIKey(a.opts.APIKey))
	if err != nil {
		return nil, errors.Wrap(err, "identity toolkit client")
	}
	return ret, nil
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (types.Credentials, error) {
	if a.toolkit == nil {
		return types.Credentials{}, errors.New("password sign-in requires a web api key")
	}
	resp, err := a.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest {
			return types.Credentials{}, errors.Wrap(types.ErrInvalidCredentials, apiErr.Message)
		}
		return types.Credentials{}, errors.Wrap(err, "verify password")
	}
	return types.Credentials{
		UID:     resp.LocalId,
		Email:   resp.Email,
		IDToken: resp.IdToken,
	}, nil
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (types.Credentials, error) {
	user, err := a.client.CreateUser(ctx, (&auth.UserToCreate{}).Email(email).Password(password))
	if err != nil {
		return types.Credentials{}, errors.Wrapf(types.ErrInvalidSignUp, "create user: %v", err)
	}
	creds := types.Credentials{UID: user.UID, Email: user.Email}
	if a.toolkit != nil {
		signedIn, err := a.SignIn(ctx, email, password)
		if err != nil {
			log.WithField("uid", user.UID).Printf("user created but sign-in failed: %v", err)
			return creds, nil
		}
		creds.IDToken = signedIn.IDToken
	}
	return creds, nil
}

// SignOut revokes the user's refresh tokens. VerifyToken rejects id tokens issued before it.
func (a *Auth) SignOut(ctx context.Context, uid string) error {
	if err := a.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return errors.Wrap(err, "revoke tokens")
	}
	return nil
}

func (a *Auth) VerifyToken(ctx context.Context, idToken string) (string, error) {
	token, err := a.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return "", errors.Wrap(types.ErrNotAuthenticated, err.Error())
	}
	return token.UID, nil
}

func (a *Auth) DeleteUser(ctx context.Context, uid string) error {
	if err := a.client.DeleteUser(ctx, uid); err != nil {
		return errors.Wrap(err, "delete user")
	}
	return nil
}

func (a *Auth) SetPhotoURL(ctx context.Context, uid, url string) error {
	if _, err := a.client.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).PhotoURL(url)); err != nil {
		return errors.Wrap(err, "update user")
	}
	return nil
}
