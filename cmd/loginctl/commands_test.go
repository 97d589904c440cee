package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matst80/securityapp/pkg/records"
	"github.com/matst80/securityapp/pkg/storage"
	"github.com/matst80/securityapp/pkg/types"
)

func testDeps(t *testing.T, published *[]types.LoginEvent) deps {
	t.Helper()
	ctx := context.Background()
	schema := types.DefaultSchema()
	store := storage.NewMemoryStore()
	_, err := store.Insert(ctx, schema.Users, map[string]any{schema.UserID: "u1", schema.DisplayName: "ana"})
	require.NoError(t, err)
	aggregator := records.NewAggregator(store, schema)
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, label := range []string{"beta", "alpha", "gamma"} {
		_, err := aggregator.AddRecord(ctx, types.NewSession("u1"), types.Record{Label: label, Timestamp: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	return deps{
		aggregator: func(ctx context.Context) (*records.Aggregator, func(), error) {
			return aggregator, func() {}, nil
		},
		publish: func(ctx context.Context, event types.LoginEvent) error {
			*published = append(*published, event)
			return nil
		},
	}
}

func run(t *testing.T, d deps, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(d)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRecordsCommand(t *testing.T) {
	d := testDeps(t, nil)
	out, err := run(t, d, "records", "u1", "--order", "label-desc", "--filter", "a", "--json")
	require.NoError(t, err)
	assert.True(t, strings.Index(out, "gamma") < strings.Index(out, "beta"))
	assert.True(t, strings.Index(out, "beta") < strings.Index(out, "alpha"))

	out, err = run(t, d, "records", "u1", "--filter", "mm")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPUTER")
	assert.Contains(t, out, "gamma")
	assert.NotContains(t, out, "beta")

	_, err = run(t, d, "records", "u1", "--order", "sideways")
	assert.Error(t, err)
}

func TestAccountCommand(t *testing.T) {
	d := testDeps(t, nil)
	out, err := run(t, d, "account", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, `"displayName": "ana"`)

	_, err = run(t, d, "account", "nobody")
	assert.Error(t, err)
}

func TestPublishCommand(t *testing.T) {
	var published []types.LoginEvent
	d := testDeps(t, &published)
	_, err := run(t, d, "publish", "u1", "office-pc", "--at", "2024-02-01T08:00:00Z")
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "office-pc", published[0].Label)
	assert.Equal(t, time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC), published[0].Timestamp)

	_, err = run(t, d, "publish", "u1", "office-pc", "--at", "yesterday")
	assert.Error(t, err)
}
