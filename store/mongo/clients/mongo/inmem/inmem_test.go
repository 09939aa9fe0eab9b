package inmem

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guildwallet/walletdb/store"
)

func TestInsertFindRemove(t *testing.T) {
	c := New()
	ctx := context.Background()

	entry := store.Document{"_id": "u1", "user": "alice", "publicKey": "PK1"}
	require.NoError(t, c.Insert(ctx, "wallet", "wallets", entry))
	require.ErrorIs(t, c.Insert(ctx, "wallet", "wallets", entry), store.ErrAlreadyExists)

	got, err := c.FindByID(ctx, "wallet", "wallets", "u1")
	require.NoError(t, err)
	require.Equal(t, entry, got)

	got["user"] = "mallory"
	again, err := c.FindByID(ctx, "wallet", "wallets", "u1")
	require.NoError(t, err)
	require.Equal(t, "alice", again["user"])

	_, err = c.FindByID(ctx, "wallet", "wallets", "u2")
	require.ErrorIs(t, err, store.ErrNotFound)

	removed, err := c.DeleteByID(ctx, "wallet", "wallets", "u1")
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = c.DeleteByID(ctx, "wallet", "wallets", "u1")
	require.NoError(t, err)
	require.False(t, removed)
	_, err = c.FindByID(ctx, "wallet", "wallets", "u1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInsertAssignsMissingID(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.Insert(ctx, "guild-1", "notes", store.Document{"text": "hello"}))

	all, err := c.FindAll(ctx, "guild-1", "notes")
	require.NoError(t, err)
	require.Len(t, all, 1)
	id, ok := all[0].ID()
	require.True(t, ok)
	require.Len(t, id, 36)
}

func TestFindAllKeepsInsertionOrder(t *testing.T) {
	c := New()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, c.Insert(ctx, "guild-1", "members", store.Document{"_id": id}))
	}
	_, err := c.DeleteByID(ctx, "guild-1", "members", "a")
	require.NoError(t, err)

	all, err := c.FindAll(ctx, "guild-1", "members")
	require.NoError(t, err)
	require.Equal(t, []store.Document{{"_id": "c"}, {"_id": "b"}}, all)

	empty, err := c.FindAll(ctx, "guild-1", "unknown")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestIncrementCreatesAndAdds(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.Insert(ctx, "wallet", "wallets", store.Document{"_id": "u1", "name": "alice"}))

	ok, err := c.Increment(ctx, "wallet", "wallets", "u1", map[string]any{"balance": 5})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = c.Increment(ctx, "wallet", "wallets", "u1", map[string]any{"balance": 3, "xp": 0.5})
	require.NoError(t, err)
	require.True(t, ok)

	doc, err := c.FindByID(ctx, "wallet", "wallets", "u1")
	require.NoError(t, err)
	require.Equal(t, int64(8), doc["balance"])
	require.Equal(t, 0.5, doc["xp"])

	ok, err = c.Increment(ctx, "wallet", "wallets", "u1", map[string]any{"balance": 0})
	require.NoError(t, err)
	require.False(t, ok, "zero delta on an existing field is not a modification")

	ok, err = c.Increment(ctx, "wallet", "wallets", "missing", map[string]any{"balance": 1})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIncrementRejectsNonNumericField(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.Insert(ctx, "wallet", "wallets", store.Document{"_id": "u1", "name": "alice", "balance": 1}))

	_, err := c.Increment(ctx, "wallet", "wallets", "u1", map[string]any{"balance": 1, "name": 1})
	require.ErrorIs(t, err, store.ErrInvalidArgument)

	doc, err := c.FindByID(ctx, "wallet", "wallets", "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1), doc["balance"], "failed increments leave the document unchanged")
}

func TestIncrementRejectsOverflow(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.Insert(ctx, "wallet", "wallets", store.Document{"_id": "u1", "balance": int64(math.MaxInt64)}))

	_, err := c.Increment(ctx, "wallet", "wallets", "u1", map[string]any{"balance": 1})
	require.ErrorIs(t, err, store.ErrInvalidArgument)
	require.ErrorContains(t, err, "overflows")

	doc, err := c.FindByID(ctx, "wallet", "wallets", "u1")
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), doc["balance"])
}

func TestIDKeepsItsType(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.Insert(ctx, "guild-1", "members", store.Document{"_id": 42, "name": "numeric"}))
	require.NoError(t, c.Insert(ctx, "guild-1", "members", store.Document{"_id": "42", "name": "string"}))

	doc, err := c.FindByID(ctx, "guild-1", "members", "42")
	require.NoError(t, err)
	require.Equal(t, "string", doc["name"])

	removed, err := c.DeleteByID(ctx, "guild-1", "members", "42")
	require.NoError(t, err)
	require.True(t, removed)
	_, err = c.FindByID(ctx, "guild-1", "members", "42")
	require.ErrorIs(t, err, store.ErrNotFound)

	docs, err := c.FindAll(ctx, "guild-1", "members")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, int64(42), docs[0]["_id"])

	ok, err := c.SetFields(ctx, "guild-1", "members", store.Document{"_id": 42}, store.Document{"name": "renamed"})
	require.NoError(t, err)
	require.True(t, ok)

	err = c.Insert(ctx, "guild-1", "members", store.Document{"_id": []any{"x"}})
	require.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestPushCreatesAndAppends(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.Insert(ctx, "wallet", "wallets", store.Document{"_id": "u1", "name": "alice"}))

	for _, item := range []string{"x", "y"} {
		ok, err := c.Push(ctx, "wallet", "wallets", "u1", "items", item)
		require.NoError(t, err)
		require.True(t, ok)
	}
	doc, err := c.FindByID(ctx, "wallet", "wallets", "u1")
	require.NoError(t, err)
	require.Equal(t, []any{"x", "y"}, doc["items"])

	_, err = c.Push(ctx, "wallet", "wallets", "u1", "name", "z")
	require.ErrorIs(t, err, store.ErrInvalidArgument)

	ok, err := c.Push(ctx, "wallet", "wallets", "missing", "items", "x")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetFieldsReportsChanges(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.Insert(ctx, "guild-1", "config", store.Document{"_id": "settings", "prefix": "!", "limit": 10}))

	ok, err := c.SetFields(ctx, "guild-1", "config", store.Document{"_id": "other"}, store.Document{"prefix": "?"})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = c.SetFields(ctx, "guild-1", "config", store.Document{"_id": "settings"}, store.Document{"prefix": "!", "limit": int32(10)})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = c.SetFields(ctx, "guild-1", "config", store.Document{"limit": 10}, store.Document{"prefix": "?"})
	require.NoError(t, err)
	require.True(t, ok)

	doc, err := c.FindByID(ctx, "guild-1", "config", "settings")
	require.NoError(t, err)
	require.Equal(t, "?", doc["prefix"])

	_, err = c.SetFields(ctx, "guild-1", "config", nil, store.Document{})
	require.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestClose(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))
	require.Equal(t, "walletdb-inmem", c.Name())
	require.NoError(t, c.Insert(ctx, "wallet", "keys", store.Document{"_id": "k"}))
	require.ElementsMatch(t, []string{"wallet"}, c.Databases())

	require.NoError(t, c.Close(ctx))
	require.ErrorIs(t, c.Ping(ctx), store.ErrClosed)
	_, err := c.FindByID(ctx, "wallet", "keys", "k")
	require.ErrorIs(t, err, store.ErrClosed)
}
