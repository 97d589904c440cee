package account

import (
	"context"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/records"
	"github.com/matst80/securityapp/pkg/types"
)

const MaxPictureSize = 10 << 20

var (
	ErrInvalidImage    = errors.New("content is not an image")
	ErrInvalidLocation = errors.New("invalid location")
)

type signUpInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Phone    string `validate:"omitempty,max=32"`
}

// Service manages the user side of an account: credentials, profile data and
// push registrations. Reads go through the aggregator.
type Service struct {
	auth     types.AuthProvider
	store    types.DocumentStore
	blobs    types.BlobStore
	accounts *records.Aggregator
	validate *validator.Validate
}

func NewService(auth types.AuthProvider, store types.DocumentStore, blobs types.BlobStore, accounts *records.Aggregator) *Service {
	return &Service{
		auth:     auth,
		store:    store,
		blobs:    blobs,
		accounts: accounts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// DisplayName is the local part of the email address.
func DisplayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

func (s *Service) SignUp(ctx context.Context, email, password, phone string) (types.Credentials, error) {
	email = strings.TrimSpace(email)
	if err := s.validate.Struct(signUpInput{Email: email, Password: password, Phone: phone}); err != nil {
		return types.Credentials{}, errors.Wrap(types.ErrInvalidSignUp, err.Error())
	}
	creds, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		return types.Credentials{}, err
	}
	schema := s.accounts.Schema()
	_, err = s.store.Insert(ctx, schema.Users, map[string]any{
		schema.UserID:      creds.UID,
		schema.DisplayName: DisplayName(email),
		schema.Phone:       phone,
	})
	if err != nil {
		if delErr := s.auth.DeleteUser(ctx, creds.UID); delErr != nil {
			log.WithField("uid", creds.UID).Errorf("could not remove user without account: %v", delErr)
		}
		return types.Credentials{}, errors.Wrap(err, "create account")
	}
	log.WithField("uid", creds.UID).Printf("account created")
	return creds, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (types.Credentials, error) {
	return s.auth.SignIn(ctx, strings.TrimSpace(email), password)
}

func (s *Service) SignOut(ctx context.Context, session types.Session) error {
	if !session.Authenticated() {
		return types.ErrNotAuthenticated
	}
	return s.auth.SignOut(ctx, session.UID)
}

func (s *Service) Account(ctx context.Context, session types.Session) types.Account {
	return s.accounts.FetchAccount(ctx, session)
}

// SetProfilePicture uploads an image and makes it the account's photo.
func (s *Service) SetProfilePicture(ctx context.Context, session types.Session, data []byte) (string, error) {
	doc, err := s.accounts.AccountDocument(ctx, session)
	if err != nil {
		return "", err
	}
	if len(data) == 0 || len(data) > MaxPictureSize {
		return "", errors.Wrapf(ErrInvalidImage, "size %d", len(data))
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", errors.Wrap(ErrInvalidImage, mtype.String())
	}
	url, err := s.blobs.Upload(ctx, "images/"+uuid.NewString(), mtype.String(), data)
	if err != nil {
		return "", errors.Wrap(err, "upload picture")
	}
	if err := s.auth.SetPhotoURL(ctx, session.UID, url); err != nil {
		return "", err
	}
	if err := s.store.Update(ctx, doc, map[string]any{s.accounts.Schema().PhotoURL: url}); err != nil {
		return "", errors.Wrap(err, "store picture url")
	}
	return url, nil
}

// ParseLocation reads "lat, lng" as picked on the map.
func ParseLocation(text string) (types.Location, error) {
	latText, lngText, ok := strings.Cut(text, ",")
	if !ok {
		return types.Location{}, errors.Wrap(ErrInvalidLocation, "expected \"lat, lng\"")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return types.Location{}, errors.Wrap(ErrInvalidLocation, err.Error())
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngText), 64)
	if err != nil {
		return types.Location{}, errors.Wrap(ErrInvalidLocation, err.Error())
	}
	if !(lat >= -90 && lat <= 90) || !(lng >= -180 && lng <= 180) {
		return types.Location{}, errors.Wrapf(ErrInvalidLocation, "%v, %v out of range", lat, lng)
	}
	return types.Location{Latitude: lat, Longitude: lng}, nil
}

func (s *Service) SetLocation(ctx context.Context, session types.Session, text string) (types.Location, error) {
	location, err := ParseLocation(text)
	if err != nil {
		return types.Location{}, err
	}
	doc, err := s.accounts.AccountDocument(ctx, session)
	if err != nil {
		return types.Location{}, err
	}
	if err := s.store.Update(ctx, doc, map[string]any{s.accounts.Schema().Location: location}); err != nil {
		return types.Location{}, errors.Wrap(err, "store location")
	}
	return location, nil
}

// RegisterDevice adds a push token to the account. Registering a token twice is a no-op.
func (s *Service) RegisterDevice(ctx context.Context, session types.Session, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty device token")
	}
	doc, err := s.accounts.AccountDocument(ctx, session)
	if err != nil {
		return err
	}
	if err := s.store.AppendToArray(ctx, doc, s.accounts.Schema().DeviceTokens, token); err != nil {
		return errors.Wrap(err, "register device")
	}
	return nil
}

// UserMessage is the text shown to users for a failed account operation.
// Credential failures never expose their cause.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidCredentials):
		return "wrong user or password"
	case errors.Is(err, types.ErrInvalidSignUp):
		return "some field is incorrect"
	case errors.Is(err, types.ErrNotAuthenticated):
		return "not signed in"
	case errors.Is(err, types.ErrAccountNotFound):
		return "account not found"
	case errors.Is(err, ErrInvalidImage):
		return "the file is not an image"
	case errors.Is(err, ErrInvalidLocation):
		return "the location is not valid"
	default:
		return "something went wrong"
	}
}
