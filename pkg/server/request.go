package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/gorilla/schema"

	"github.com/matst80/securityapp/pkg/types"
)

const maxBodySize = 1 << 20

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Phone    string `json:"phone"`
}

type RecordsQuery struct {
	Order  string `schema:"order"`
	Filter string `schema:"q"`
}

type ViewQuery struct {
	Wait bool `schema:"wait"`
}

type AddRecordRequest struct {
	Label     string    `json:"label" validate:"max=256"`
	Timestamp time.Time `json:"timestamp"`
}

type LocationRequest struct {
	Location string `json:"location" validate:"required"`
}

type DeviceRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

type OpenViewRequest struct {
	Base   string `json:"base"`
	Filter string `json:"filter"`
}

type BaseRequest struct {
	Base string `json:"base" validate:"required"`
}

type FilterRequest struct {
	Filter string `json:"filter"`
}

type RecordsResponse struct {
	Order   types.Ordering `json:"order"`
	Filter  string         `json:"filter"`
	Records []types.Record `json:"records"`
}

type PictureResponse struct {
	PhotoURL string `json:"photoUrl"`
}

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

func decodeQuery[V any](values url.Values) (V, error) {
	var v V
	err := decoder.Decode(&v, values)
	return v, err
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return s.validate.Struct(v)
}

// decodeOptionalBody is decodeBody for requests where an empty body keeps v unchanged.
func (s *Server) decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "decode body")
	}
	return s.validate.Struct(v)
}
