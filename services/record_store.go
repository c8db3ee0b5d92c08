package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"insureflow/models"
	"insureflow/utils"
)

// Store failure conditions the callers must tell apart: a missing record is
// terminal for that id, a timeout or an unreachable backend is retryable.
var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrStoreTimeout     = errors.New("record store timeout")
)

// Stored records expire after 30 days.
const recordTTL = 30 * 24 * time.Hour

// Per-request deadlines applied by callers.
const (
	InitialFetchTimeout = 10 * time.Second
	PollFetchTimeout    = 5 * time.Second
)

// RecordStore retrieves or persists records by opaque identifier.
type RecordStore interface {
	FetchByID(ctx context.Context, id string) (*models.InsuranceRecord, error)
	Save(ctx context.Context, r *models.InsuranceRecord) (string, error)
}

// RedisRecordStore keeps records as JSON values under insurance_record_<id>.
type RedisRecordStore struct {
	rdb *redis.Client
}

func NewRedisRecordStore(rdb *redis.Client) *RedisRecordStore {
	return &RedisRecordStore{rdb: rdb}
}

func recordKey(id string) string {
	return fmt.Sprintf("insurance_record_%s", id)
}

func (s *RedisRecordStore) FetchByID(ctx context.Context, id string) (*models.InsuranceRecord, error) {
	val, err := s.rdb.Get(ctx, recordKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrStoreTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var r models.InsuranceRecord
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return nil, fmt.Errorf("%w: corrupt record %s", ErrStoreUnavailable, id)
	}
	return &r, nil
}

// Save persists the record and returns its identifier. The identifier is
// generated here on first save and never changes afterwards. The derived
// premium is recalculated before writing so a stored record can never
// violate the premium invariant.
func (s *RedisRecordStore) Save(ctx context.Context, r *models.InsuranceRecord) (string, error) {
	if r.OrderID == "" {
		r.OrderID = utils.GenerateOrderID()
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	utils.RecalcPremium(r)

	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.rdb.Set(ctx, recordKey(r.OrderID), data, recordTTL).Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrStoreTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return r.OrderID, nil
}
