package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/model"
)

// stateTTL bounds how long an OAuth authorization round-trip may take.
const stateTTL = 10 * time.Minute

// OAuthState is the pending-authorization record keyed by the opaque
// state parameter.
type OAuthState struct {
	UserID   string             `json:"user_id"`
	TenantID string             `json:"tenant_id"`
	Kind     model.ProviderKind `json:"provider"`
}

// StateStore keeps in-flight OAuth states in Redis with a TTL, so the
// authorization flow survives process restarts and works across multiple
// worker processes.
type StateStore struct {
	rdb *redis.Client
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

func stateKey(state string) string { return "oauthstate:" + state }

func (s *StateStore) Put(ctx context.Context, state string, v *OAuthState) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, stateKey(state), data, stateTTL).Err()
}

// Take validates and consumes the state: a state can be redeemed exactly
// once.
func (s *StateStore) Take(ctx context.Context, state string) (*OAuthState, error) {
	data, err := s.rdb.GetDel(ctx, stateKey(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var out OAuthState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
