package records

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/matst80/securityapp/pkg/storage"
	"github.com/matst80/securityapp/pkg/types"
)

var schema = types.DefaultSchema()

var base = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func seedAccount(t *testing.T, store *storage.MemoryStore, uid string, records ...types.Record) {
	t.Helper()
	ctx := context.Background()
	id, err := store.Insert(ctx, schema.Users, map[string]any{
		schema.UserID:      uid,
		schema.DisplayName: "ana",
		schema.Phone:       "555-1234",
	})
	if err != nil {
		t.Fatal(err)
	}
	docs, _ := store.FindEqual(ctx, schema.Users, schema.UserID, uid)
	idx := slices.IndexFunc(docs, func(d types.Document) bool { return d.ID == id })
	for _, r := range records {
		fields := map[string]any{schema.RecordLabel: r.Label}
		if r.HasTimestamp() {
			fields[schema.RecordTimestamp] = r.Timestamp
		}
		if _, err := store.InsertChild(ctx, docs[idx], schema.Records, fields); err != nil {
			t.Fatal(err)
		}
	}
}

func sampleRecords() []types.Record {
	return []types.Record{
		{Label: "beta", Timestamp: base.Add(2 * time.Hour)},
		{Label: "Gamma", Timestamp: base.Add(3 * time.Hour)},
		{Label: "Alpha", Timestamp: base.Add(1 * time.Hour)},
		{Label: "delta", Timestamp: base.Add(4 * time.Hour)},
	}
}

func labelsOf(records []types.Record) []string {
	ret := make([]string, len(records))
	for i, r := range records {
		ret[i] = r.Label
	}
	return ret
}

func sortedLabels(records []types.Record) []string {
	l := labelsOf(records)
	slices.Sort(l)
	return l
}

func TestFetchOrderings(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1", sampleRecords()...)
	agg := NewAggregator(store, schema)
	ctx := context.Background()
	session := types.NewSession("u1")

	expected := map[types.Ordering][]string{
		types.OrderDefault:         {"beta", "Gamma", "Alpha", "delta"},
		types.OrderTimeAscending:   {"Alpha", "beta", "Gamma", "delta"},
		types.OrderTimeDescending:  {"delta", "Gamma", "beta", "Alpha"},
		types.OrderLabelAscending:  {"Alpha", "beta", "delta", "Gamma"},
		types.OrderLabelDescending: {"Gamma", "delta", "beta", "Alpha"},
	}
	for ordering, want := range expected {
		got := labelsOf(agg.FetchOrdering(ctx, session, ordering))
		if !slices.Equal(got, want) {
			t.Errorf("%s: expected %v, got %v", ordering, want, got)
		}
	}
}

func TestViewsArePermutations(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1", append(sampleRecords(), types.Record{Label: "no time"})...)
	agg := NewAggregator(store, schema)
	ctx := context.Background()
	session := types.NewSession("u1")

	reference := sortedLabels(agg.FetchRecords(ctx, session))
	if len(reference) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(reference))
	}
	for _, o := range types.Orderings {
		if got := sortedLabels(agg.FetchOrdering(ctx, session, o)); !slices.Equal(got, reference) {
			t.Errorf("%s is not a permutation: %v vs %v", o, got, reference)
		}
	}
}

func TestReversedOrderings(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1", sampleRecords()...)
	agg := NewAggregator(store, schema)
	ctx := context.Background()
	session := types.NewSession("u1")

	asc := agg.FetchRecordsOrderedByTime(ctx, session, types.Ascending)
	desc := agg.FetchRecordsOrderedByTime(ctx, session, types.Descending)
	slices.Reverse(asc)
	if !slices.Equal(labelsOf(asc), labelsOf(desc)) {
		t.Errorf("Expected reversed time ascending to equal descending: %v vs %v", labelsOf(asc), labelsOf(desc))
	}

	asc = agg.FetchRecordsOrderedByLabel(ctx, session, types.Ascending)
	desc = agg.FetchRecordsOrderedByLabel(ctx, session, types.Descending)
	slices.Reverse(asc)
	if !slices.Equal(labelsOf(asc), labelsOf(desc)) {
		t.Errorf("Expected reversed label ascending to equal descending: %v vs %v", labelsOf(asc), labelsOf(desc))
	}
}

func TestMissingTimestampSortsFirst(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1", types.Record{Label: "late", Timestamp: base}, types.Record{Label: "unknown"})
	agg := NewAggregator(store, schema)
	got := agg.FetchRecordsOrderedByTime(context.Background(), types.NewSession("u1"), types.Ascending)
	if !slices.Equal(labelsOf(got), []string{"unknown", "late"}) {
		t.Errorf("Expected record without timestamp first, got %v", labelsOf(got))
	}
}

func TestUnauthenticatedSessionIsEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1", sampleRecords()...)
	agg := NewAggregator(store, schema)
	ctx := context.Background()

	for _, o := range types.Orderings {
		got := agg.FetchOrdering(ctx, types.Session{}, o)
		if got == nil || len(got) != 0 {
			t.Errorf("%s: expected empty non-nil view, got %v", o, got)
		}
	}
	if account := agg.FetchAccount(ctx, types.Session{}); account.ID != "" || account.DisplayName != "" {
		t.Errorf("Expected zero account, got %+v", account)
	}
}

func TestUnknownAccountIsEmpty(t *testing.T) {
	agg := NewAggregator(storage.NewMemoryStore(), schema)
	if got := agg.FetchRecords(context.Background(), types.NewSession("ghost")); len(got) != 0 {
		t.Errorf("Expected empty view, got %v", got)
	}
}

type failingStore struct {
	types.DocumentStore
	err error
}

func (f failingStore) Children(ctx context.Context, parent types.Document, sub, orderBy string, dir types.Direction) ([]types.Document, error) {
	return nil, f.err
}

func TestStoreFailureIsEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1", sampleRecords()...)
	agg := NewAggregator(failingStore{DocumentStore: store, err: errors.New("unavailable")}, schema)
	got := agg.FetchRecordsOrderedByLabel(context.Background(), types.NewSession("u1"), types.Descending)
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil view, got %v", got)
	}
}

func TestFetchAccount(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1")
	agg := NewAggregator(store, schema)
	account := agg.FetchAccount(context.Background(), types.NewSession("u1"))
	if account.ID != "u1" || account.DisplayName != "ana" || account.Phone != "555-1234" {
		t.Errorf("Unexpected account %+v", account)
	}
}

func TestAmbiguousAccountUsesFirst(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1", types.Record{Label: "first"})
	seedAccount(t, store, "u1", types.Record{Label: "second"})
	agg := NewAggregator(store, schema)
	got := agg.FetchRecords(context.Background(), types.NewSession("u1"))
	if !slices.Equal(labelsOf(got), []string{"first"}) {
		t.Errorf("Expected records of the first account document, got %v", labelsOf(got))
	}
}

func TestAddRecordStampsTime(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1")
	now := base.Add(time.Minute)
	agg := NewAggregator(store, schema, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	session := types.NewSession("u1")

	account, err := agg.AddRecord(ctx, session, types.Record{Label: "workstation"})
	if err != nil {
		t.Fatal(err)
	}
	if account.ID != "u1" {
		t.Errorf("Expected account of the session, got %+v", account)
	}
	got := agg.FetchRecords(ctx, session)
	if len(got) != 1 || !got[0].Timestamp.Equal(now) {
		t.Errorf("Expected stamped record, got %+v", got)
	}

	if _, err := agg.AddRecord(ctx, types.Session{}, types.Record{Label: "x"}); !errors.Is(err, types.ErrNotAuthenticated) {
		t.Errorf("Expected not authenticated error, got %v", err)
	}
	if _, err := agg.AddRecord(ctx, types.NewSession("ghost"), types.Record{Label: "x"}); !errors.Is(err, types.ErrAccountNotFound) {
		t.Errorf("Expected account not found error, got %v", err)
	}
}

type mapCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	counters map[string]int64
}

func (c *mapCache) Get(ctx context.Context, key string, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return errors.New("miss")
	}
	return json.Unmarshal(data, out)
}

func (c *mapCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *mapCache) Counter(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[key], nil
}

func (c *mapCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}, counters: map[string]int64{}}
}

func TestCachedViewsAreInvalidatedOnInsert(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1", types.Record{Label: "one", Timestamp: base})
	cache := newMapCache()
	agg := NewAggregator(store, schema, WithCache(cache))
	ctx := context.Background()
	session := types.NewSession("u1")

	if got := agg.FetchRecords(ctx, session); len(got) != 1 {
		t.Fatalf("Expected one record, got %v", got)
	}
	if _, ok := cache.entries[viewKey("u1", 0, types.OrderDefault)]; !ok {
		t.Fatalf("Expected view to be cached")
	}

	if _, err := agg.AddRecord(ctx, session, types.Record{Label: "two", Timestamp: base.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if cache.counters[generationKey("u1")] != 1 {
		t.Errorf("Expected insert to bump the view generation, got %d", cache.counters[generationKey("u1")])
	}
	if got := agg.FetchRecords(ctx, session); len(got) != 2 {
		t.Errorf("Expected two records after insert, got %v", got)
	}
}

// pausingStore blocks Children after it has listed the documents until
// release is closed.
type pausingStore struct {
	types.DocumentStore
	listed  chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingStore) Children(ctx context.Context, parent types.Document, sub, orderBy string, dir types.Direction) ([]types.Document, error) {
	docs, err := p.DocumentStore.Children(ctx, parent, sub, orderBy, dir)
	paused := false
	p.once.Do(func() { paused = true })
	if paused {
		close(p.listed)
		<-p.release
	}
	return docs, err
}

func TestSlowFetchDoesNotCacheOverInsert(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAccount(t, store, "u1", types.Record{Label: "one", Timestamp: base})
	slow := &pausingStore{DocumentStore: store, listed: make(chan struct{}), release: make(chan struct{})}
	agg := NewAggregator(slow, schema, WithCache(newMapCache()))
	ctx := context.Background()
	session := types.NewSession("u1")

	done := make(chan []types.Record)
	go func() {
		done <- agg.FetchRecords(ctx, session)
	}()
	<-slow.listed
	if _, err := agg.AddRecord(ctx, session, types.Record{Label: "two", Timestamp: base.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	close(slow.release)
	if got := <-done; !slices.Equal(labelsOf(got), []string{"one"}) {
		t.Fatalf("Expected the paused fetch to see one record, got %v", labelsOf(got))
	}

	got := agg.FetchRecords(ctx, session)
	if !slices.Equal(sortedLabels(got), []string{"one", "two"}) {
		t.Errorf("Expected fresh fetch after insert to see both records, got %v", labelsOf(got))
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestAnonymousFetchIsNotAFailure(t *testing.T) {
	agg := NewAggregator(storage.NewMemoryStore(), schema)
	failures := recordFetchFailures.WithLabelValues(types.OrderDefault.String())
	before := counterValue(t, failures)
	agg.FetchRecords(context.Background(), types.Session{})
	after := counterValue(t, failures)
	if after != before {
		t.Errorf("Expected anonymous fetch not to count as a failure, went from %v to %v", before, after)
	}
}

func TestSortRecordsStable(t *testing.T) {
	records := []types.Record{
		{Label: "b", Timestamp: base},
		{Label: "B", Timestamp: base.Add(time.Hour)},
		{Label: "a"},
	}
	SortRecords(records, types.SortLabel, types.Ascending)
	if !slices.Equal(labelsOf(records), []string{"a", "b", "B"}) {
		t.Errorf("Expected case insensitive stable order, got %v", labelsOf(records))
	}
	SortRecords(records, types.SortLabel, types.Descending)
	if !slices.Equal(labelsOf(records), []string{"b", "B", "a"}) {
		t.Errorf("Expected equal labels to keep their order, got %v", labelsOf(records))
	}
}
