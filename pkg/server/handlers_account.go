package server

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/matst80/securityapp/pkg/account"
	"github.com/matst80/securityapp/pkg/common"
	"github.com/matst80/securityapp/pkg/types"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotAuthenticated), errors.Is(err, types.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrAccountNotFound), errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidSignUp), errors.Is(err, account.ErrInvalidImage), errors.Is(err, account.ErrInvalidLocation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the user facing message for err and returns err for logging.
func fail(w http.ResponseWriter, err error) error {
	if writeErr := common.WriteError(w, statusFor(err), account.UserMessage(err)); writeErr != nil {
		return writeErr
	}
	return err
}

func badRequest(w http.ResponseWriter, err error) error {
	if writeErr := common.WriteError(w, http.StatusBadRequest, err.Error()); writeErr != nil {
		return writeErr
	}
	return nil
}

func unauthorized(w http.ResponseWriter) error {
	return common.WriteError(w, http.StatusUnauthorized, account.UserMessage(types.ErrNotAuthenticated))
}

func (s *Server) SignUp(w http.ResponseWriter, r *http.Request, _ types.Session) error {
	req := CredentialsRequest{}
	if err := s.decodeBody(w, r, &req); err != nil {
		return fail(w, errors.Wrap(types.ErrInvalidSignUp, err.Error()))
	}
	creds, err := s.Accounts.SignUp(r.Context(), req.Email, req.Password, req.Phone)
	if err != nil {
		return fail(w, err)
	}
	if err := s.Sessions.SetCookie(w, creds.Session()); err != nil {
		return fail(w, err)
	}
	return common.WriteJson(w, http.StatusCreated, creds)
}

func (s *Server) SignIn(w http.ResponseWriter, r *http.Request, _ types.Session) error {
	req := CredentialsRequest{}
	if err := s.decodeBody(w, r, &req); err != nil {
		return fail(w, errors.Wrap(types.ErrInvalidCredentials, err.Error()))
	}
	creds, err := s.Accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		return fail(w, err)
	}
	if err := s.Sessions.SetCookie(w, creds.Session()); err != nil {
		return fail(w, err)
	}
	return common.WriteJson(w, http.StatusOK, creds)
}

func (s *Server) SignOut(w http.ResponseWriter, r *http.Request, session types.Session) error {
	s.Sessions.ClearCookie(w)
	if !session.Authenticated() {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	s.Sessions.Revoke(session.UID)
	if err := s.Accounts.SignOut(r.Context(), session); err != nil {
		return fail(w, err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) GetAccount(w http.ResponseWriter, r *http.Request, session types.Session) error {
	return common.WriteJson(w, http.StatusOK, s.Accounts.Account(r.Context(), session))
}

func (s *Server) SetPicture(w http.ResponseWriter, r *http.Request, session types.Session) error {
	if !session.Authenticated() {
		return unauthorized(w)
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, account.MaxPictureSize+1))
	if err != nil {
		return badRequest(w, err)
	}
	url, err := s.Accounts.SetProfilePicture(r.Context(), session, data)
	if err != nil {
		return fail(w, err)
	}
	return common.WriteJson(w, http.StatusOK, PictureResponse{PhotoURL: url})
}

func (s *Server) SetLocation(w http.ResponseWriter, r *http.Request, session types.Session) error {
	if !session.Authenticated() {
		return unauthorized(w)
	}
	req := LocationRequest{}
	if err := s.decodeBody(w, r, &req); err != nil {
		return badRequest(w, err)
	}
	location, err := s.Accounts.SetLocation(r.Context(), session, req.Location)
	if err != nil {
		return fail(w, err)
	}
	return common.WriteJson(w, http.StatusOK, location)
}

func (s *Server) RegisterDevice(w http.ResponseWriter, r *http.Request, session types.Session) error {
	if !session.Authenticated() {
		return unauthorized(w)
	}
	req := DeviceRequest{}
	if err := s.decodeBody(w, r, &req); err != nil {
		return badRequest(w, err)
	}
	if err := s.Accounts.RegisterDevice(r.Context(), session, req.Token); err != nil {
		return fail(w, err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
