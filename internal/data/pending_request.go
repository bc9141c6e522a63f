package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"OAuthDropins/internal/conf"
	pkglog "OAuthDropins/pkg/log"
	"OAuthDropins/pkg/oauth/util"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	// PendingRequestKeyPrefix Redis 键前缀: oauth_request:{state}
	PendingRequestKeyPrefix = "oauth_request:"

	// DefaultPendingTTL bounds how long a user may take at the provider.
	DefaultPendingTTL = 10 * time.Minute

	maxReserveAttempts = 5
)

var (
	// ErrPendingRequestNotFound means the state was never issued, already used, or expired.
	ErrPendingRequestNotFound = errors.New("pending oauth request not found or expired")
	// ErrStateSpaceExhausted means every generated token collided with a live request.
	ErrStateSpaceExhausted = errors.New("could not reserve a unique oauth state")
)

// PendingAuthRequest is the server-side proof that a start stage issued a state.
// Secret mirrors ID so a record is self-describing when inspected directly in Redis.
type PendingAuthRequest struct {
	ID        string    `json:"id"`
	Secret    string    `json:"secret"`
	State     string    `json:"state"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingRequestStore keeps PendingAuthRequest records in Redis with a TTL.
type PendingRequestStore struct {
	rdb      *redis.Client
	ttl      time.Duration
	generate func() (string, error)
	log      *pkglog.LogHelper
}

// NewPendingRequestStore creates a PendingRequestStore.
func NewPendingRequestStore(d *Data, c *conf.OAuth, logger log.Logger) *PendingRequestStore {
	ttl := DefaultPendingTTL
	if c != nil && c.PendingTTL > 0 {
		ttl = c.PendingTTL
	}
	return &PendingRequestStore{
		rdb:      d.redisClient,
		ttl:      ttl,
		generate: util.GenerateStateToken,
		log:      pkglog.NewLogHelper(logger),
	}
}

func pendingKey(id string) string {
	return PendingRequestKeyPrefix + id
}

func newPendingRequest(provider, id string) *PendingAuthRequest {
	return &PendingAuthRequest{
		ID:        id,
		Secret:    id,
		State:     id,
		Provider:  provider,
		CreatedAt: time.Now().UTC(),
	}
}

// Issue generates a fresh state token and reserves it with SETNX so a
// generated token never replaces another user's pending request.
func (s *PendingRequestStore) Issue(ctx context.Context, provider string) (*PendingAuthRequest, error) {
	for attempt := 1; attempt <= maxReserveAttempts; attempt++ {
		token, err := s.generate()
		if err != nil {
			return nil, err
		}

		req := newPendingRequest(provider, token)
		payload, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal pending request: %w", err)
		}

		ok, err := s.rdb.SetNX(ctx, pendingKey(token), payload, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to save pending request: %w", err)
		}
		if ok {
			s.log.Redis("pending request issued", "provider", provider, "state", token, "attempt", attempt)
			return req, nil
		}
		s.log.Warnw(log.DefaultMessageKey, "state token collision, regenerating", "provider", provider, "attempt", attempt)
	}
	return nil, ErrStateSpaceExhausted
}

// Save stores a pending request under a caller-chosen state, replacing any earlier one.
func (s *PendingRequestStore) Save(ctx context.Context, provider, state string) (*PendingAuthRequest, error) {
	if state == "" {
		return nil, errors.New("state is required")
	}

	req := newPendingRequest(provider, state)
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pending request: %w", err)
	}

	if err := s.rdb.Set(ctx, pendingKey(state), payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to save pending request: %w", err)
	}

	s.log.Redis("pending request saved", "provider", provider, "state", state)
	return req, nil
}

// Consume atomically reads and deletes the pending request for state.
// A request issued for another provider is reported as not found and stays consumed.
func (s *PendingRequestStore) Consume(ctx context.Context, provider, state string) (*PendingAuthRequest, error) {
	val, err := s.rdb.GetDel(ctx, pendingKey(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPendingRequestNotFound
		}
		return nil, fmt.Errorf("failed to load pending request: %w", err)
	}

	var req PendingAuthRequest
	if err := json.Unmarshal(val, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending request: %w", err)
	}

	if req.Provider != provider {
		s.log.Security("pending request used with another provider",
			"state", state, "issued_for", req.Provider, "used_for", provider)
		return nil, ErrPendingRequestNotFound
	}

	return &req, nil
}
