package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/txledger/internal/domain"
)

// ErrSnapshotNotFound is returned when a run has no snapshot stored.
var ErrSnapshotNotFound = errors.New("snapshot not found")

const latestSuffix = "latest"

// snapshotRow is the JSON value stored per client.
type snapshotRow struct {
	Client    domain.ClientID `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}

// SnapshotStore exports final account snapshots to Redis.
//
// Each run is one hash at <prefix><run_id> keyed by client id; <prefix>latest
// holds the id of the most recent run. Both expire after ttl (0 keeps them).
type SnapshotStore struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	retrier *Retrier
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(client *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) *SnapshotStore {
	return &SnapshotStore{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		retrier: NewRetrier(logger),
	}
}

func (s *SnapshotStore) Name() string {
	return "redis"
}

func (s *SnapshotStore) runKey(runID string) string {
	return s.prefix + runID
}

// WriteSnapshot stores the snapshot and marks runID as latest in one MULTI/EXEC.
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, runID string, accounts []domain.AccountSnapshot) error {
	fields := make(map[string]any, len(accounts))
	for _, acc := range accounts {
		value, err := json.Marshal(snapshotRow(acc))
		if err != nil {
			return fmt.Errorf("encode client %d: %w", acc.Client, err)
		}
		fields[strconv.FormatUint(uint64(acc.Client), 10)] = value
	}

	key := s.runKey(runID)
	return s.retrier.Retry(ctx, func() error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if len(fields) > 0 {
				pipe.HSet(ctx, key, fields)
				if s.ttl > 0 {
					pipe.Expire(ctx, key, s.ttl)
				}
			}
			pipe.Set(ctx, s.runKey(latestSuffix), runID, s.ttl)
			return nil
		})
		return err
	})
}

// Latest returns the id of the most recently exported run.
func (s *SnapshotStore) Latest(ctx context.Context) (string, error) {
	runID, err := s.client.Get(ctx, s.runKey(latestSuffix)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSnapshotNotFound
	}
	if err != nil {
		return "", err
	}
	return runID, nil
}

// Load returns the snapshot stored for runID in ascending client order.
// A run that exported no accounts loads as an empty slice.
func (s *SnapshotStore) Load(ctx context.Context, runID string) ([]domain.AccountSnapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.runKey(runID)).Result()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.AccountSnapshot, 0, len(fields))
	for field, value := range fields {
		var row snapshotRow
		if err := json.Unmarshal([]byte(value), &row); err != nil {
			return nil, fmt.Errorf("decode client %s: %w", field, err)
		}
		accounts = append(accounts, domain.AccountSnapshot(row))
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Client < accounts[j].Client })
	return accounts, nil
}
