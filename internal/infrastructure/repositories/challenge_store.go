package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/feedauth/domain"
)

// ChallengeStoreImpl implements domain.ChallengeStore using Redis
type ChallengeStoreImpl struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewChallengeStore creates a new challenge store
func NewChallengeStore(client redis.UniversalClient) domain.ChallengeStore {
	return &ChallengeStoreImpl{
		client: client,
		prefix: "challenge:",
		now:    time.Now,
	}
}

// Save implements domain.ChallengeStore
func (r *ChallengeStoreImpl) Save(ctx context.Context, challenge *domain.PendingChallenge) error {
	ttl := challenge.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("challenge %s already expired", challenge.ID)
	}

	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	return r.client.Set(ctx, r.prefix+challenge.ID, data, ttl).Err()
}

// Find implements domain.ChallengeStore
func (r *ChallengeStoreImpl) Find(ctx context.Context, id string) (*domain.PendingChallenge, error) {
	data, err := r.client.Get(ctx, r.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, err
	}

	var challenge domain.PendingChallenge
	if err := json.Unmarshal([]byte(data), &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	return &challenge, nil
}

// Delete implements domain.ChallengeStore
func (r *ChallengeStoreImpl) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.prefix+id).Err()
}
