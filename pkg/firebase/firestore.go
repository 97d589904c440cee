package firebase

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/go-faster/errors"
	"google.golang.org/genproto/googleapis/type/latlng"

	"github.com/matst80/securityapp/pkg/types"
)

// FirestoreStore implements types.DocumentStore on Cloud Firestore.
//
// Firestore leaves documents without the order-by field out of ordered
// queries; records written through this service always carry both fields.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

func fromNative(v any) any {
	switch t := v.(type) {
	case *latlng.LatLng:
		if t == nil {
			return nil
		}
		return types.Location{Latitude: t.GetLatitude(), Longitude: t.GetLongitude()}
	default:
		return v
	}
}

func toNative(v any) any {
	switch t := v.(type) {
	case types.Location:
		return &latlng.LatLng{Latitude: t.Latitude, Longitude: t.Longitude}
	case *types.Location:
		if t == nil {
			return nil
		}
		return &latlng.LatLng{Latitude: t.Latitude, Longitude: t.Longitude}
	default:
		return v
	}
}

func toNativeMap(fields map[string]any) map[string]any {
	ret := make(map[string]any, len(fields))
	for k, v := range fields {
		ret[k] = toNative(v)
	}
	return ret
}

func toDocument(snap *firestore.DocumentSnapshot) types.Document {
	data := snap.Data()
	for k, v := range data {
		data[k] = fromNative(v)
	}
	return types.Document{ID: snap.Ref.ID, Ref: snap.Ref, Fields: data}
}

func toDocuments(snaps []*firestore.DocumentSnapshot) []types.Document {
	ret := make([]types.Document, 0, len(snaps))
	for _, snap := range snaps {
		if snap.Exists() {
			ret = append(ret, toDocument(snap))
		}
	}
	return ret
}

func refOf(doc types.Document) (*firestore.DocumentRef, error) {
	ref, ok := doc.Ref.(*firestore.DocumentRef)
	if !ok || ref == nil {
		return nil, errors.Errorf("document %q is not a firestore document", doc.ID)
	}
	return ref, nil
}

func direction(dir types.Direction) firestore.Direction {
	if dir == types.Descending {
		return firestore.Desc
	}
	return firestore.Asc
}

func (f *FirestoreStore) FindEqual(ctx context.Context, collection, field string, value any) ([]types.Document, error) {
	snaps, err := f.client.Collection(collection).
		WherePath(firestore.FieldPath{field}, "==", toNative(value)).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", collection)
	}
	return toDocuments(snaps), nil
}

func (f *FirestoreStore) Children(ctx context.Context, parent types.Document, sub, orderBy string, dir types.Direction) ([]types.Document, error) {
	ref, err := refOf(parent)
	if err != nil {
		return nil, err
	}
	q := ref.Collection(sub).Query
	if orderBy != "" {
		q = q.OrderByPath(firestore.FieldPath{orderBy}, direction(dir))
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Wrapf(err, "query %s/%s", ref.Path, sub)
	}
	return toDocuments(snaps), nil
}

func (f *FirestoreStore) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, toNativeMap(fields))
	if err != nil {
		return "", errors.Wrapf(err, "add to %s", collection)
	}
	return ref.ID, nil
}

func (f *FirestoreStore) InsertChild(ctx context.Context, parent types.Document, sub string, fields map[string]any) (string, error) {
	ref, err := refOf(parent)
	if err != nil {
		return "", err
	}
	child, _, err := ref.Collection(sub).Add(ctx, toNativeMap(fields))
	if err != nil {
		return "", errors.Wrapf(err, "add to %s/%s", ref.Path, sub)
	}
	return child.ID, nil
}

// Update merges fields into the document. Keys are field names, not paths.
func (f *FirestoreStore) Update(ctx context.Context, doc types.Document, fields map[string]any) error {
	ref, err := refOf(doc)
	if err != nil {
		return err
	}
	if _, err = ref.Set(ctx, toNativeMap(fields), firestore.MergeAll); err != nil {
		return errors.Wrapf(err, "update %s", ref.Path)
	}
	return nil
}

func (f *FirestoreStore) AppendToArray(ctx context.Context, doc types.Document, field string, values ...any) error {
	ref, err := refOf(doc)
	if err != nil {
		return err
	}
	_, err = ref.Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{field}, Value: firestore.ArrayUnion(values...)},
	})
	if err != nil {
		return errors.Wrapf(err, "append to %s.%s", ref.Path, field)
	}
	return nil
}
