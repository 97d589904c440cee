package records

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/types"
)

// ViewCache stores fetched views between requests. Views are keyed by a per
// account generation counter so a view read before an insert can never be
// served after it. Records written to the store by other processes are only
// visible once the cached view expires.
type ViewCache interface {
	Get(ctx context.Context, key string, out any) error
	Set(ctx context.Context, key string, value any) error
	// Counter returns the value of a counter, zero when it was never incremented.
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// Aggregator reads an account and its login records from the document store.
// Read operations never fail: errors are logged and an empty result returned.
type Aggregator struct {
	store  types.DocumentStore
	schema types.Schema
	cache  ViewCache
	now    func() time.Time
}

type Option func(*Aggregator)

func WithCache(cache ViewCache) Option {
	return func(a *Aggregator) {
		a.cache = cache
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func NewAggregator(store types.DocumentStore, schema types.Schema, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		schema: schema,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func generationKey(uid string) string {
	return fmt.Sprintf("records:%s:gen", uid)
}

func viewKey(uid string, generation int64, ordering types.Ordering) string {
	return fmt.Sprintf("records:%s:%d:%s", uid, generation, ordering)
}

// resolveAccount finds the account document of the session. The store is
// expected to hold at most one; if it holds more the first one returned wins.
func (a *Aggregator) resolveAccount(ctx context.Context, session types.Session) (types.Document, error) {
	if !session.Authenticated() {
		return types.Document{}, types.ErrNotAuthenticated
	}
	docs, err := a.store.FindEqual(ctx, a.schema.Users, a.schema.UserID, session.UID)
	if err != nil {
		return types.Document{}, errors.Wrap(err, "find account")
	}
	if len(docs) == 0 {
		return types.Document{}, types.ErrAccountNotFound
	}
	if len(docs) > 1 {
		ambiguousAccounts.Inc()
		log.WithFields(log.Fields{
			"uid":       session.UID,
			"documents": len(docs),
		}).Warnf("more than one account document, using %s", docs[0].ID)
	}
	return docs[0], nil
}

// AccountDocument resolves the session's account document for write paths.
func (a *Aggregator) AccountDocument(ctx context.Context, session types.Session) (types.Document, error) {
	return a.resolveAccount(ctx, session)
}

func (a *Aggregator) Schema() types.Schema {
	return a.schema
}

func logFailure(op string, session types.Session, err error) {
	log.WithFields(log.Fields{
		"uid": session.UID,
		"op":  op,
	}).Printf("returning empty result: %v", err)
}

// FetchAccount returns the session's account, or the zero Account.
func (a *Aggregator) FetchAccount(ctx context.Context, session types.Session) types.Account {
	doc, err := a.resolveAccount(ctx, session)
	if err != nil {
		logFailure("account", session, err)
		return types.Account{}
	}
	return a.accountFromDocument(doc)
}

// Fetch returns the session's records sorted by key. Ordering is requested from
// the store and pinned locally with SortRecords.
func (a *Aggregator) Fetch(ctx context.Context, session types.Session, key types.SortKey, dir types.Direction) []types.Record {
	ordering := types.OrderingFor(key, dir)
	recordFetches.WithLabelValues(ordering.String()).Inc()
	records, err := a.fetch(ctx, session, ordering)
	if err != nil {
		if !errors.Is(err, types.ErrNotAuthenticated) {
			recordFetchFailures.WithLabelValues(ordering.String()).Inc()
		}
		logFailure(ordering.String(), session, err)
		return []types.Record{}
	}
	return records
}

func (a *Aggregator) fetch(ctx context.Context, session types.Session, ordering types.Ordering) ([]types.Record, error) {
	if !session.Authenticated() {
		return nil, types.ErrNotAuthenticated
	}
	cacheKey := ""
	if a.cache != nil {
		if generation, err := a.cache.Counter(ctx, generationKey(session.UID)); err == nil {
			cacheKey = viewKey(session.UID, generation, ordering)
		} else {
			log.Printf("could not read view generation for %s: %v", session.UID, err)
		}
	}
	if cacheKey != "" {
		var cached []types.Record
		if err := a.cache.Get(ctx, cacheKey, &cached); err == nil {
			if cached == nil {
				cached = []types.Record{}
			}
			return cached, nil
		}
	}

	account, err := a.resolveAccount(ctx, session)
	if err != nil {
		return nil, err
	}
	key, dir := ordering.Key()
	docs, err := a.store.Children(ctx, account, a.schema.Records, a.schema.SortField(key), dir)
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	records := make([]types.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, a.recordFromDocument(doc))
	}
	SortRecords(records, key, dir)

	if cacheKey != "" {
		if err := a.cache.Set(ctx, cacheKey, records); err != nil {
			log.Printf("could not cache %s: %v", cacheKey, err)
		}
	}
	return records, nil
}

// FetchRecords returns the records in the store's default order.
func (a *Aggregator) FetchRecords(ctx context.Context, session types.Session) []types.Record {
	return a.Fetch(ctx, session, types.SortNone, types.Ascending)
}

func (a *Aggregator) FetchRecordsOrderedByTime(ctx context.Context, session types.Session, dir types.Direction) []types.Record {
	return a.Fetch(ctx, session, types.SortTime, dir)
}

func (a *Aggregator) FetchRecordsOrderedByLabel(ctx context.Context, session types.Session, dir types.Direction) []types.Record {
	return a.Fetch(ctx, session, types.SortLabel, dir)
}

func (a *Aggregator) FetchOrdering(ctx context.Context, session types.Session, ordering types.Ordering) []types.Record {
	key, dir := ordering.Key()
	return a.Fetch(ctx, session, key, dir)
}

// AddRecord stores a login record for the session's account and returns the
// account it was stored on. Records without a timestamp are stamped now.
func (a *Aggregator) AddRecord(ctx context.Context, session types.Session, record types.Record) (types.Account, error) {
	doc, err := a.resolveAccount(ctx, session)
	if err != nil {
		return types.Account{}, err
	}
	if !record.HasTimestamp() {
		record.Timestamp = a.now()
	}
	_, err = a.store.InsertChild(ctx, doc, a.schema.Records, map[string]any{
		a.schema.RecordLabel:     record.Label,
		a.schema.RecordTimestamp: record.Timestamp,
	})
	if err != nil {
		return types.Account{}, errors.Wrap(err, "insert record")
	}
	recordsInserted.Inc()
	a.invalidate(ctx, session.UID)
	return a.accountFromDocument(doc), nil
}

// invalidate moves the account to a new view generation. Views cached under
// an older generation are left to expire.
func (a *Aggregator) invalidate(ctx context.Context, uid string) {
	if a.cache == nil {
		return
	}
	if _, err := a.cache.Incr(ctx, generationKey(uid)); err != nil {
		log.Printf("could not invalidate cached views for %s: %v", uid, err)
	}
}
