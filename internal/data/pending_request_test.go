package data

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"OAuthDropins/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPendingStore(t *testing.T) (*PendingRequestStore, *Data) {
	t.Helper()
	d, _, _ := setupTestData(t)
	store := NewPendingRequestStore(d, &conf.OAuth{PendingTTL: 10 * time.Minute}, log.DefaultLogger)
	return store, d
}

func TestPendingRequestStore_IssueAndConsume(t *testing.T) {
	store, d := setupPendingStore(t)
	ctx := context.Background()

	req, err := store.Issue(ctx, "reddit")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), req.ID)
	assert.Equal(t, req.ID, req.Secret)
	assert.Equal(t, req.ID, req.State)
	assert.Equal(t, "reddit", req.Provider)

	// record is visible in Redis with a TTL before anything else happens
	rdb := d.GetRedisClient()
	ttl, err := rdb.TTL(ctx, PendingRequestKeyPrefix+req.ID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 9*time.Minute)

	raw, err := rdb.Get(ctx, PendingRequestKeyPrefix+req.ID).Bytes()
	require.NoError(t, err)
	var stored PendingAuthRequest
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, req.ID, stored.ID)

	got, err := store.Consume(ctx, "reddit", req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	// single use
	_, err = store.Consume(ctx, "reddit", req.ID)
	assert.ErrorIs(t, err, ErrPendingRequestNotFound)
}

func TestPendingRequestStore_ConsumeUnknown(t *testing.T) {
	store, _ := setupPendingStore(t)

	_, err := store.Consume(context.Background(), "reddit", "999999")
	assert.ErrorIs(t, err, ErrPendingRequestNotFound)
}

func TestPendingRequestStore_Expiry(t *testing.T) {
	d, _, mr := setupTestData(t)
	store := NewPendingRequestStore(d, &conf.OAuth{PendingTTL: time.Minute}, log.DefaultLogger)
	ctx := context.Background()

	req, err := store.Issue(ctx, "reddit")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Consume(ctx, "reddit", req.ID)
	assert.ErrorIs(t, err, ErrPendingRequestNotFound)
}

func TestPendingRequestStore_DefaultTTL(t *testing.T) {
	d, _, _ := setupTestData(t)
	store := NewPendingRequestStore(d, nil, log.DefaultLogger)
	assert.Equal(t, DefaultPendingTTL, store.ttl)
}

func TestPendingRequestStore_IssueRegeneratesOnCollision(t *testing.T) {
	store, _ := setupPendingStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "reddit", "111111")
	require.NoError(t, err)

	tokens := []string{"111111", "111111", "222222"}
	calls := 0
	store.generate = func() (string, error) {
		tok := tokens[calls]
		calls++
		return tok, nil
	}

	req, err := store.Issue(ctx, "reddit")
	require.NoError(t, err)
	assert.Equal(t, "222222", req.ID)
	assert.Equal(t, 3, calls)

	// the colliding request was left intact
	_, err = store.Consume(ctx, "reddit", "111111")
	assert.NoError(t, err)
}

func TestPendingRequestStore_IssueExhausted(t *testing.T) {
	store, _ := setupPendingStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "reddit", "111111")
	require.NoError(t, err)

	store.generate = func() (string, error) { return "111111", nil }

	_, err = store.Issue(ctx, "reddit")
	assert.ErrorIs(t, err, ErrStateSpaceExhausted)
}

func TestPendingRequestStore_IssueGeneratorError(t *testing.T) {
	store, _ := setupPendingStore(t)
	boom := errors.New("entropy unavailable")
	store.generate = func() (string, error) { return "", boom }

	_, err := store.Issue(context.Background(), "reddit")
	assert.ErrorIs(t, err, boom)
}

func TestPendingRequestStore_SaveOverwrites(t *testing.T) {
	store, _ := setupPendingStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, "reddit", "fixed-state")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := store.Save(ctx, "reddit", "fixed-state")
	require.NoError(t, err)
	assert.True(t, second.CreatedAt.After(first.CreatedAt) || second.CreatedAt.Equal(first.CreatedAt))

	got, err := store.Consume(ctx, "reddit", "fixed-state")
	require.NoError(t, err)
	assert.Equal(t, "fixed-state", got.ID)

	_, err = store.Consume(ctx, "reddit", "fixed-state")
	assert.ErrorIs(t, err, ErrPendingRequestNotFound)
}

func TestPendingRequestStore_SaveRequiresState(t *testing.T) {
	store, _ := setupPendingStore(t)
	_, err := store.Save(context.Background(), "reddit", "")
	assert.Error(t, err)
}

func TestPendingRequestStore_ProviderMismatch(t *testing.T) {
	store, _ := setupPendingStore(t)
	ctx := context.Background()

	req, err := store.Issue(ctx, "reddit")
	require.NoError(t, err)

	_, err = store.Consume(ctx, "github", req.ID)
	assert.ErrorIs(t, err, ErrPendingRequestNotFound)

	// the mismatched attempt burned the record
	_, err = store.Consume(ctx, "reddit", req.ID)
	assert.ErrorIs(t, err, ErrPendingRequestNotFound)
}

func TestPendingRequestStore_RedisDown(t *testing.T) {
	d, _, mr := setupTestData(t)
	store := NewPendingRequestStore(d, nil, log.DefaultLogger)
	mr.Close()

	_, err := store.Issue(context.Background(), "reddit")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStateSpaceExhausted)

	_, err = store.Consume(context.Background(), "reddit", "123456")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPendingRequestNotFound)
}
