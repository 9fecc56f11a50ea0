// Package session provides the Valkey-backed registry of issued bearer
// tokens. Every token id is stored with the token's remaining lifetime and
// indexed per account, so a single token or all of an account's tokens can
// be revoked before they expire.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix namespaces token entries in Valkey to avoid collisions.
	keyPrefix = "session:"

	// userPrefix namespaces the per-account index of token ids.
	userPrefix = "session:user:"
)

// Data holds the metadata stored for one issued token.
type Data struct {
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	RemoteIP  string    `json:"remote_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// Store manages token registrations in Valkey.
type Store struct {
	client *redis.Client
}

// NewStore creates a session store backed by the given Valkey client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Create registers token id for data.UserID until data.ExpiresAt.
func (s *Store) Create(ctx context.Context, id string, data *Data) error {
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	ttl := time.Until(data.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session create: token already expired")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	userKey := userPrefix + data.UserID.String()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+id, payload, ttl)
		pipe.SAdd(ctx, userKey, id)
		// The index lives as long as the newest token it holds.
		pipe.ExpireGT(ctx, userKey, ttl)
		pipe.ExpireNX(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// Get returns the data registered for token id, or nil if the id is unknown
// or expired.
func (s *Store) Get(ctx context.Context, id string) (*Data, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Exists reports whether token id is still registered.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return n == 1, nil
}

// Destroy revokes a single token id. Unknown ids are not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	data, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keyPrefix+id)
		if data != nil {
			pipe.SRem(ctx, userPrefix+data.UserID.String(), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}

// DestroyAllForUser revokes every token registered for userID except the
// ids listed in keep.
func (s *Store) DestroyAllForUser(ctx context.Context, userID uuid.UUID, keep ...string) error {
	userKey := userPrefix + userID.String()
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("session list user: %w", err)
	}

	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}

	var revoke []string
	for _, id := range ids {
		if !kept[id] {
			revoke = append(revoke, id)
		}
	}
	if len(revoke) == 0 {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		keys := make([]string, len(revoke))
		members := make([]any, len(revoke))
		for i, id := range revoke {
			keys[i] = keyPrefix + id
			members[i] = id
		}
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, userKey, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session destroy user: %w", err)
	}
	return nil
}
