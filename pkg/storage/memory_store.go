package storage

import (
	"cmp"
	"context"
	"maps"
	"os"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/types"
)

const documentsFile = "documents.json"

type memoryDocument struct {
	ID       string                       `json:"id"`
	Fields   map[string]any               `json:"fields"`
	Children map[string][]*memoryDocument `json:"children,omitempty"`
}

// MemoryStore is a DocumentStore kept in memory, optionally persisted as json
// through a DiskStorage after every write. Used for local development and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]*memoryDocument
	disk        *DiskStorage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]*memoryDocument),
	}
}

// NewPersistentMemoryStore loads previously saved documents from disk, if any.
func NewPersistentMemoryStore(disk *DiskStorage) (*MemoryStore, error) {
	m := NewMemoryStore()
	m.disk = disk
	err := disk.LoadJson(&m.collections, documentsFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load documents")
	}
	if m.collections == nil {
		m.collections = make(map[string][]*memoryDocument)
	}
	return m, nil
}

func (m *MemoryStore) Save() error {
	if m.disk == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disk.SaveJson(m.collections, documentsFile)
}

func (m *MemoryStore) persist() {
	if err := m.Save(); err != nil {
		log.Printf("could not save documents: %v", err)
	}
}

func toDocument(d *memoryDocument) types.Document {
	return types.Document{
		ID:     d.ID,
		Ref:    d,
		Fields: maps.Clone(d.Fields),
	}
}

func (m *MemoryStore) refOf(doc types.Document) (*memoryDocument, error) {
	ref, ok := doc.Ref.(*memoryDocument)
	if !ok || ref == nil {
		return nil, errors.Errorf("document %q does not belong to this store", doc.ID)
	}
	return ref, nil
}

func (m *MemoryStore) FindEqual(ctx context.Context, collection, field string, value any) ([]types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]types.Document, 0)
	for _, d := range m.collections[collection] {
		if v, ok := d.Fields[field]; ok && reflect.DeepEqual(v, value) {
			ret = append(ret, toDocument(d))
		}
	}
	return ret, nil
}

// compareValues orders field values the way the remote store does: missing
// values first, then by type specific order. Strings compare byte-wise.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	}
	return 0
}

func (m *MemoryStore) Children(ctx context.Context, parent types.Document, sub, orderBy string, dir types.Direction) ([]types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref, err := m.refOf(parent)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	children := slices.Clone(ref.Children[sub])
	if orderBy != "" {
		slices.SortStableFunc(children, func(a, b *memoryDocument) int {
			c := compareValues(a.Fields[orderBy], b.Fields[orderBy])
			if dir == types.Descending {
				return -c
			}
			return c
		})
	}
	ret := make([]types.Document, 0, len(children))
	for _, c := range children {
		ret = append(ret, toDocument(c))
	}
	return ret, nil
}

func (m *MemoryStore) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d := &memoryDocument{ID: uuid.NewString(), Fields: maps.Clone(fields)}
	m.mu.Lock()
	m.collections[collection] = append(m.collections[collection], d)
	m.mu.Unlock()
	m.persist()
	return d.ID, nil
}

func (m *MemoryStore) InsertChild(ctx context.Context, parent types.Document, sub string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref, err := m.refOf(parent)
	if err != nil {
		return "", err
	}
	d := &memoryDocument{ID: uuid.NewString(), Fields: maps.Clone(fields)}
	m.mu.Lock()
	if ref.Children == nil {
		ref.Children = make(map[string][]*memoryDocument)
	}
	ref.Children[sub] = append(ref.Children[sub], d)
	m.mu.Unlock()
	m.persist()
	return d.ID, nil
}

func (m *MemoryStore) Update(ctx context.Context, doc types.Document, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ref, err := m.refOf(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if ref.Fields == nil {
		ref.Fields = make(map[string]any)
	}
	maps.Copy(ref.Fields, fields)
	m.mu.Unlock()
	m.persist()
	return nil
}

// AppendToArray adds the values missing from the array field, like a union.
func (m *MemoryStore) AppendToArray(ctx context.Context, doc types.Document, field string, values ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ref, err := m.refOf(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	var existing []any
	switch v := ref.Fields[field].(type) {
	case []any:
		existing = v
	case []string:
		for _, s := range v {
			existing = append(existing, s)
		}
	}
	for _, value := range values {
		if !slices.ContainsFunc(existing, func(e any) bool { return reflect.DeepEqual(e, value) }) {
			existing = append(existing, value)
		}
	}
	if ref.Fields == nil {
		ref.Fields = make(map[string]any)
	}
	ref.Fields[field] = existing
	m.mu.Unlock()
	m.persist()
	return nil
}
