// Package seedstore persists the direction chosen for "relates to" links.
//
// A seed is stored per project and task link as a small JSON document
// {"t":task_id,"o":opposite_task_id,"s":seed_task_id} under the key
// fg_relseed:<project_id>:<task_link_id>. Unreadable documents are treated as
// absent.
package seedstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ganttservice/internal/model"
	"ganttservice/pkg/metrics"
)

const keyPrefix = "fg_relseed"

// ErrInvalidSeed is returned by Set for incomplete seeds.
var ErrInvalidSeed = errors.New("seed task must be one of the link endpoints")

type Store struct {
	rdb    redis.Cmdable
	logger *zap.Logger
}

func New(rdb redis.Cmdable, logger *zap.Logger) *Store {
	return &Store{
		rdb:    rdb,
		logger: logger,
	}
}

// Key returns the storage key of a link's seed.
func Key(projectID, taskLinkID int) string {
	return fmt.Sprintf("%s:%d:%d", keyPrefix, projectID, taskLinkID)
}

// Get returns the seed of a link. ok is false when no usable seed is stored.
func (s *Store) Get(ctx context.Context, projectID, taskLinkID int) (model.Seed, bool, error) {
	raw, err := s.rdb.Get(ctx, Key(projectID, taskLinkID)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.IncrementSeedOperation("get", "miss")
		return model.Seed{}, false, nil
	}
	if err != nil {
		metrics.IncrementSeedOperation("get", "error")
		return model.Seed{}, false, fmt.Errorf("failed to read seed %d: %w", taskLinkID, err)
	}

	seed, ok := s.decode(raw, projectID, taskLinkID)
	if !ok {
		metrics.IncrementSeedOperation("get", "malformed")
		return model.Seed{}, false, nil
	}
	metrics.IncrementSeedOperation("get", "hit")
	return seed, true, nil
}

// GetBulk reads the seeds of many links in one round trip. Links without a
// usable seed are absent from the result.
func (s *Store) GetBulk(ctx context.Context, projectID int, taskLinkIDs []int) (map[int]model.Seed, error) {
	out := make(map[int]model.Seed, len(taskLinkIDs))
	if len(taskLinkIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(taskLinkIDs))
	for i, id := range taskLinkIDs {
		keys[i] = Key(projectID, id)
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		metrics.IncrementSeedOperation("get_bulk", "error")
		return nil, fmt.Errorf("failed to read %d seeds: %w", len(keys), err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		if seed, ok := s.decode(raw, projectID, taskLinkIDs[i]); ok {
			out[taskLinkIDs[i]] = seed
		}
	}
	metrics.IncrementSeedOperation("get_bulk", "ok")
	return out, nil
}

// Set stores seed for a link, replacing any previous one.
func (s *Store) Set(ctx context.Context, projectID, taskLinkID int, seed model.Seed) error {
	if !seed.Valid() {
		return ErrInvalidSeed
	}
	body, err := json.Marshal(seed)
	if err != nil {
		return fmt.Errorf("failed to encode seed: %w", err)
	}

	if err := s.rdb.Set(ctx, Key(projectID, taskLinkID), body, 0).Err(); err != nil {
		metrics.IncrementSeedOperation("set", "error")
		return fmt.Errorf("failed to write seed %d: %w", taskLinkID, err)
	}
	metrics.IncrementSeedOperation("set", "ok")
	return nil
}

// Clear removes a link's seed. Clearing an absent seed is not an error.
func (s *Store) Clear(ctx context.Context, projectID, taskLinkID int) error {
	if err := s.rdb.Del(ctx, Key(projectID, taskLinkID)).Err(); err != nil {
		metrics.IncrementSeedOperation("clear", "error")
		return fmt.Errorf("failed to clear seed %d: %w", taskLinkID, err)
	}
	metrics.IncrementSeedOperation("clear", "ok")
	return nil
}

func (s *Store) decode(raw string, projectID, taskLinkID int) (model.Seed, bool) {
	var seed model.Seed
	if err := json.Unmarshal([]byte(raw), &seed); err != nil || !seed.Valid() {
		s.logger.Warn("Ignoring unreadable link seed",
			zap.Int("project_id", projectID),
			zap.Int("task_link_id", taskLinkID),
			zap.Error(err),
		)
		return model.Seed{}, false
	}
	return seed, true
}
