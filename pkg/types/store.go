package types

import (
	"context"
)

// Document is a snapshot of a stored document. Ref is an opaque handle the
// store that produced the document uses to address it again.
type Document struct {
	ID     string
	Ref    any
	Fields map[string]any
}

func (d Document) String(field string) string {
	v, _ := d.Fields[field].(string)
	return v
}

func (d Document) Strings(field string) []string {
	switch v := d.Fields[field].(type) {
	case []string:
		return v
	case []any:
		ret := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				ret = append(ret, str)
			}
		}
		return ret
	default:
		return nil
	}
}

// DocumentStore is the subset of a document database the service relies on.
// Queries are best effort and eventually consistent.
type DocumentStore interface {
	// FindEqual returns the documents of collection whose field equals value.
	FindEqual(ctx context.Context, collection, field string, value any) ([]Document, error)
	// Children lists the sub-collection of parent. An empty orderBy keeps the store's default order.
	Children(ctx context.Context, parent Document, sub, orderBy string, dir Direction) ([]Document, error)
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)
	InsertChild(ctx context.Context, parent Document, sub string, fields map[string]any) (string, error)
	Update(ctx context.Context, doc Document, fields map[string]any) error
	AppendToArray(ctx context.Context, doc Document, field string, values ...any) error
}

// AuthProvider performs credential operations against the identity backend.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (Credentials, error)
	SignUp(ctx context.Context, email, password string) (Credentials, error)
	SignOut(ctx context.Context, uid string) error
	// VerifyToken returns the uid an identity token was issued for.
	VerifyToken(ctx context.Context, idToken string) (string, error)
	SetPhotoURL(ctx context.Context, uid, url string) error
	DeleteUser(ctx context.Context, uid string) error
}

// BlobStore stores binary content and returns a URL it can be fetched from.
type BlobStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

type LoginNotifier interface {
	NotifyLogin(ctx context.Context, account Account, record Record) error
}
