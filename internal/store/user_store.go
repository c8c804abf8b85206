package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/model"
)

// ErrEmailTaken is returned when a registration reuses an address.
var ErrEmailTaken = errors.New("email already registered")

// UserStore persists tenants and users with an email login index.
type UserStore struct {
	rdb *redis.Client
}

func NewUserStore(rdb *redis.Client) *UserStore {
	return &UserStore{rdb: rdb}
}

func userKey(id string) string       { return "user:" + id }
func userEmailKey(email string) string {
	return "user_email:" + strings.ToLower(email)
}
func tenantKey(id string) string { return "tenant:" + id }

func (s *UserStore) CreateTenant(ctx context.Context, t *model.Tenant) error {
	t.CreatedAt = time.Now().UTC()
	return putJSON(ctx, s.rdb, tenantKey(t.TenantID), t)
}

func (s *UserStore) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var t model.Tenant
	if err := getJSON(ctx, s.rdb, tenantKey(tenantID), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateUser inserts a user; the email index claim is atomic so two
// concurrent registrations cannot share an address.
func (s *UserStore) CreateUser(ctx context.Context, u *model.User) error {
	claimed, err := s.rdb.SetNX(ctx, userEmailKey(u.Email), u.UserID, 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return ErrEmailTaken
	}
	u.CreatedAt = time.Now().UTC()
	return putJSON(ctx, s.rdb, userKey(u.UserID), u)
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	if err := getJSON(ctx, s.rdb, userKey(userID), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	id, err := s.rdb.Get(ctx, userEmailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetUser(ctx, id)
}
